package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/search"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
)

// ---------- test DB ----------

func newNodeDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:node_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&domain.Node{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedNode(t *testing.T, db *gorm.DB, n domain.Node) domain.Node {
	t.Helper()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Collection == "" {
		n.Collection = "main"
	}
	if err := db.Create(&n).Error; err != nil {
		t.Fatalf("seed node: %v", err)
	}
	return n
}

// ---------- flexible service stubs ----------

type stubGraphSvc struct {
	graphs   func() []string
	init     func(context.Context, string) (*domain.Node, error)
	node     func(context.Context, string, string) (*domain.Node, error)
	children func(context.Context, string, string) ([]domain.Node, error)
	importFn func(context.Context, string, []domain.Node) (int, error)
}

func (s stubGraphSvc) Graphs() []string {
	if s.graphs != nil {
		return s.graphs()
	}
	return []string{"main"}
}

func (s stubGraphSvc) Init(ctx context.Context, g string) (*domain.Node, error) {
	if s.init != nil {
		return s.init(ctx, g)
	}
	return &domain.Node{ID: "root", NodeType: domain.TypeQuestion}, nil
}

func (s stubGraphSvc) Node(ctx context.Context, g, id string) (*domain.Node, error) {
	if s.node != nil {
		return s.node(ctx, g, id)
	}
	return &domain.Node{ID: id, NodeType: domain.TypeThesis}, nil
}

func (s stubGraphSvc) Children(ctx context.Context, g, id string) ([]domain.Node, error) {
	if s.children != nil {
		return s.children(ctx, g, id)
	}
	return nil, nil
}

func (s stubGraphSvc) Import(ctx context.Context, g string, nodes []domain.Node) (int, error) {
	if s.importFn != nil {
		return s.importFn(ctx, g, nodes)
	}
	return len(nodes), nil
}

type stubRatingSvc struct {
	submitHuman func(context.Context, string, string, string, int) (*domain.Node, error)
	userRating  func(context.Context, string, string, string) (int, bool, error)
	aiRating    func(context.Context, string, string) (int, bool, error)
	generateAI  func(context.Context, string, string) (*domain.Node, error)
}

func (s stubRatingSvc) SubmitHuman(ctx context.Context, g, id, u string, r int) (*domain.Node, error) {
	if s.submitHuman != nil {
		return s.submitHuman(ctx, g, id, u, r)
	}
	return &domain.Node{ID: id}, nil
}

func (s stubRatingSvc) UserRating(ctx context.Context, g, id, u string) (int, bool, error) {
	if s.userRating != nil {
		return s.userRating(ctx, g, id, u)
	}
	return 0, false, nil
}

func (s stubRatingSvc) AIRating(ctx context.Context, g, id string) (int, bool, error) {
	if s.aiRating != nil {
		return s.aiRating(ctx, g, id)
	}
	return 0, false, nil
}

func (s stubRatingSvc) GenerateAI(ctx context.Context, g, id string) (*domain.Node, error) {
	if s.generateAI != nil {
		return s.generateAI(ctx, g, id)
	}
	return &domain.Node{ID: id}, nil
}

type stubGenSvc struct {
	preview func(context.Context, string, string, domain.NodeType, string) (*services.Attempt, error)
	commit  func(context.Context, string, *services.Candidate, string) (*domain.Node, error)
}

func (s stubGenSvc) Preview(ctx context.Context, g, pid string, ct domain.NodeType, ui string) (*services.Attempt, error) {
	if s.preview != nil {
		return s.preview(ctx, g, pid, ct, ui)
	}
	return &services.Attempt{State: services.StatePreviewed, Candidate: &services.Candidate{NodeType: ct, ParentID: pid}}, nil
}

func (s stubGenSvc) Commit(ctx context.Context, g string, c *services.Candidate, pid string) (*domain.Node, error) {
	if s.commit != nil {
		return s.commit(ctx, g, c, pid)
	}
	return &domain.Node{ID: "new", ParentID: &pid}, nil
}

func (s stubGenSvc) Reject(c *services.Candidate) *services.Attempt {
	return &services.Attempt{State: services.StateRejected}
}

type stubExplSvc struct {
	explain func(context.Context, string, string) (string, error)
	stream  func(context.Context, string, string, func(string) error) error
}

func (s stubExplSvc) Explain(ctx context.Context, g, id string) (string, error) {
	if s.explain != nil {
		return s.explain(ctx, g, id)
	}
	return "ok", nil
}

func (s stubExplSvc) Stream(ctx context.Context, g, id string, fn func(string) error) error {
	if s.stream != nil {
		return s.stream(ctx, g, id, fn)
	}
	return nil
}

type stubImgSvc struct {
	upload   func(context.Context, string, string, string, []byte, string) (*domain.ImageAsset, error)
	list     func(context.Context, string, string) []domain.ImageAsset
	generate func(context.Context, string, string) (*domain.ImageAsset, error)
}

func (s stubImgSvc) Upload(ctx context.Context, g, id, name string, data []byte, ct string) (*domain.ImageAsset, error) {
	if s.upload != nil {
		return s.upload(ctx, g, id, name, data, ct)
	}
	return &domain.ImageAsset{ID: "obj", Name: name}, nil
}

func (s stubImgSvc) List(ctx context.Context, g, id string) []domain.ImageAsset {
	if s.list != nil {
		return s.list(ctx, g, id)
	}
	return nil
}

func (s stubImgSvc) Generate(ctx context.Context, g, id string) (*domain.ImageAsset, error) {
	if s.generate != nil {
		return s.generate(ctx, g, id)
	}
	return &domain.ImageAsset{ID: "gen"}, nil
}

type stubBeliefSvc struct {
	digest func(context.Context, string) ([]domain.Node, error)
}

func (s stubBeliefSvc) Digest(ctx context.Context, g string) ([]domain.Node, error) {
	if s.digest != nil {
		return s.digest(ctx, g)
	}
	return nil, nil
}

type stubSearchSvc struct {
	rebuild func(context.Context, string) error
	query   func(context.Context, string, string, int) ([]search.Result, error)

	rebuilds int
}

func (s *stubSearchSvc) Rebuild(ctx context.Context, g string) error {
	s.rebuilds++
	if s.rebuild != nil {
		return s.rebuild(ctx, g)
	}
	return nil
}

func (s *stubSearchSvc) Query(ctx context.Context, g, q string, k int) ([]search.Result, error) {
	if s.query != nil {
		return s.query(ctx, g, q, k)
	}
	return nil, nil
}

// newStubHandlers wires default stubs; tests override individual fields.
func newStubHandlers() (*Handlers, *stubSearchSvc) {
	srch := &stubSearchSvc{}
	h := New(stubGraphSvc{}, stubRatingSvc{}, stubGenSvc{}, stubExplSvc{}, stubImgSvc{}, stubBeliefSvc{}, srch)
	return h, srch
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
