package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/admin"
	"github.com/d60-Lab/eip-site/internal/api/handler"
	"github.com/d60-Lab/eip-site/internal/api/middleware"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/notify"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/auth"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/database/dbtest"
	"github.com/d60-Lab/eip-site/pkg/mailer"
	"github.com/d60-Lab/eip-site/pkg/storage/memory"
)

const adminPassword = "correct horse"

type testServer struct {
	r     *gin.Engine
	db    *gorm.DB
	mail  *mailer.Recorder
	store *memory.Backend
}

type body struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, rl config.RateLimitConfig) *testServer {
	t.Helper()
	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Admin:  config.AdminConfig{Username: "admin", PasswordHash: hash},
		JWT:    config.JWTConfig{Secret: "test-secret", Issuer: "eip-site", TTL: time.Hour},
		Mail:   config.MailConfig{AdminEmail: "admin@example.org", Timeout: time.Second},
		Site:   config.SiteConfig{Title: "EIP Ethiopia", URL: "http://localhost:8080"},
		Intake: config.IntakeConfig{
			MaxUploadBytes:     5 << 20,
			MinMessageLength:   10,
			DisposableDomains:  []string{"mailinator.com"},
			AllowedResumeTypes: []string{".pdf", ".doc", ".docx"},
		},
		Cache:     config.CacheConfig{HomeTTL: time.Minute, CategoriesTTL: time.Minute, PageTTL: time.Minute},
		RateLimit: rl,
	}

	db := dbtest.New(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewRedisWithClient(client, "test:")
	store := memory.New()
	rec := &mailer.Recorder{}
	notifier := notify.New(rec, cfg.Mail, cfg.Site)
	var clock service.Clock

	posts := repository.NewPostRepository(db)
	taxonomy := repository.NewTaxonomyRepository(db)
	publications := repository.NewPublicationRepository(db)
	vacancies := repository.NewVacancyRepository(db)
	hits := service.NewHitWriter(posts, repository.NewStatRepository(db))
	authManager := auth.NewManager(cfg.Admin, cfg.JWT)

	h := handler.New(handler.Services{
		Posts:         service.NewPostService(posts, taxonomy, hits, c, cfg.Cache, clock),
		Taxonomy:      service.NewTaxonomyService(taxonomy, publications, c),
		Publications:  service.NewPublicationService(publications, hits, store, c, cfg, clock),
		Vacancies:     service.NewVacancyService(vacancies, repository.NewApplicationRepository(db), store, notifier, c, cfg.Intake, clock),
		Contacts:      service.NewContactService(repository.NewContactRepository(db), notifier, cfg.Intake),
		Subscriptions: service.NewSubscriptionService(repository.NewSubscriberRepository(db), notifier, cfg.Intake, clock),
		Search:        service.NewSearchService(posts, publications, vacancies, clock),
		Site:          service.NewSiteService(repository.NewSiteRepository(db), posts, publications, c, cfg, clock),
	}, admin.NewLister(db), authManager)

	var limiter *middleware.RateLimiter
	if rl.Enabled {
		limiter = middleware.NewRateLimiter(rl)
	}
	r := NewRouter(RouterDependencies{Config: cfg, Handler: h, Auth: authManager, Cache: c, Limiter: limiter})
	return &testServer{r: r, db: db, mail: rec, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) (*httptest.ResponseRecorder, body) {
	t.Helper()
	var rd *bytes.Reader
	switch p := payload.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(p))
	default:
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:4321"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, body) {
	t.Helper()
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	var b body
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b), w.Body.String())
	}
	return w, b
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w, b := s.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{"username": "admin", "password": adminPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(b.Data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

type part struct {
	field, filename string
	content         []byte
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "203.0.113.7:4321"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	w, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// swagger 未开启
	w, _ = s.do(t, http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})

	w, b := s.do(t, http.MethodGet, "/api/v1/admin/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, b.Error)

	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, b = s.do(t, http.MethodPost, "/api/v1/admin/login", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request format", b.Error)

	token := s.login(t)
	w, _ = s.do(t, http.MethodGet, "/api/v1/admin/posts", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	token := s.login(t)

	w, b := s.do(t, http.MethodPost, "/api/v1/admin/categories", token, map[string]string{"name": "Projects"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cat := decode[model.Category](t, b.Data)
	assert.Equal(t, "projects", cat.Slug)

	w, b = s.do(t, http.MethodPost, "/api/v1/admin/posts", token, map[string]any{
		"title": "Clean Water Launch", "body": "Wells for the region.", "post_type": "news", "category_ids": []string{cat.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[model.Post](t, b.Data)
	assert.Equal(t, "clean-water-launch", post.Slug)
	assert.Equal(t, model.PostStatusDraft, post.Status)

	// 草稿不可见
	w, _ = s.do(t, http.MethodGet, "/api/v1/posts/clean-water-launch", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, b = s.do(t, http.MethodPost, "/api/v1/admin/posts/"+post.ID+"/status", token, map[string]string{"status": "published"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, decode[model.Post](t, b.Data).PublishedAt)

	w, b = s.do(t, http.MethodGet, "/api/v1/posts?type=news", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	list := decode[service.Page[model.Post]](t, b.Data)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Clean Water Launch", list.Items[0].Title)

	w, _ = s.do(t, http.MethodGet, "/api/v1/posts?type=news", "", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	for i := 0; i < 2; i++ {
		w, b = s.do(t, http.MethodGet, "/api/v1/posts/clean-water-launch", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	detail := decode[service.PostDetail](t, b.Data)
	assert.EqualValues(t, 2, detail.Post.Views)
	var views int64
	require.NoError(t, s.db.Model(&model.PostView{}).Where("post_id = ?", post.ID).Count(&views).Error)
	assert.EqualValues(t, 2, views)

	// 更新后页面缓存失效，slug 和发布状态不变
	w, _ = s.do(t, http.MethodPut, "/api/v1/admin/posts/"+post.ID, token, map[string]any{
		"title": "Clean Water Launch Update", "slug": "ignored", "post_type": "news", "body": "Updated body",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, b = s.do(t, http.MethodGet, "/api/v1/posts?type=news", "", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	list = decode[service.Page[model.Post]](t, b.Data)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "clean-water-launch", list.Items[0].Slug)
	assert.Equal(t, "Clean Water Launch Update", list.Items[0].Title)
	assert.Equal(t, model.PostStatusPublished, list.Items[0].Status)

	w, b = s.do(t, http.MethodPost, "/api/v1/admin/posts", token, map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, b.Error)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/admin/posts/"+post.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/admin/posts/"+post.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicationUploadAndDownload(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	token := s.login(t)

	w, b := s.do(t, http.MethodPost, "/api/v1/admin/publication-categories", token, map[string]string{"name": "Reports"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cat := decode[model.PublicationCategory](t, b.Data)

	// 缺少分类：400，不落文件
	req := multipartRequest(t, http.MethodPost, "/api/v1/admin/publications", token,
		map[string]string{"title": "Annual Report 2025"},
		part{"file", "report.pdf", []byte("%PDF-1.4")})
	w, b = s.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, b.Error)
	assert.Equal(t, 0, s.store.Len())

	req = multipartRequest(t, http.MethodPost, "/api/v1/admin/publications", token,
		map[string]string{"title": "Annual Report 2025", "category_id": cat.ID, "is_featured": "true"},
		part{"file", "report.pdf", []byte("%PDF-1.4 annual")})
	w, b = s.serve(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pub := decode[model.Publication](t, b.Data)
	assert.Equal(t, "annual-report-2025", pub.Slug)
	assert.Equal(t, 1, s.store.Len())

	w, _ = s.do(t, http.MethodGet, "/api/v1/publications/annual-report-2025/download", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 annual", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "annual-report-2025.pdf")

	w, b = s.do(t, http.MethodGet, "/api/v1/publications/annual-report-2025", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[service.PublicationDetail](t, b.Data)
	assert.EqualValues(t, 1, detail.Publication.DownloadCount)

	w, _ = s.do(t, http.MethodGet, "/api/v1/publications/missing/download", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/admin/publications/"+pub.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestApplyOverHTTP(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	token := s.login(t)

	deadline := time.Now().UTC().AddDate(0, 0, 14).Format(time.DateOnly)
	w, b := s.do(t, http.MethodPost, "/api/v1/admin/vacancies", token, map[string]any{
		"title": "Field Officer", "job_type": "full-time", "location": "Addis Ababa", "deadline": deadline,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vacancy := decode[model.Vacancy](t, b.Data)

	fields := map[string]string{
		"full_name": "Abebe Kebede", "email": "abebe@example.com", "phone": "+251911000000", "cover_letter": "I would like to apply.",
	}

	req := multipartRequest(t, http.MethodPost, "/api/v1/vacancies/field-officer/apply", "", fields,
		part{"resume", "cv.exe", []byte("MZ")})
	w, b = s.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unsupported file format. Please upload PDF or Word documents.", b.Error)
	assert.Equal(t, 0, s.store.Len())
	assert.Empty(t, s.mail.Messages())

	req = multipartRequest(t, http.MethodPost, "/api/v1/vacancies/field-officer/apply", "", fields,
		part{"resume", "cv.pdf", []byte("%PDF cv")},
		part{"additional_documents", "letters.docx", []byte("docx")})
	w, b = s.serve(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.AppliedMessage("Field Officer"), b.Message)
	assert.Equal(t, 2, s.store.Len())
	assert.Len(t, s.mail.Messages(), 2)

	w, b = s.do(t, http.MethodGet, "/api/v1/admin/vacancies/"+vacancy.ID+"/applications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	apps := decode[service.Page[model.Application]](t, b.Data)
	require.Len(t, apps.Items, 1)
	require.NotNil(t, apps.Items[0].IPAddress)
	assert.Equal(t, "203.0.113.7", *apps.Items[0].IPAddress)

	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/applications/"+apps.Items[0].ID+"/reviewed", token, map[string]bool{"reviewed": true})
	assert.Equal(t, http.StatusOK, w.Code)

	req = multipartRequest(t, http.MethodPost, "/api/v1/vacancies/no-such-job/apply", "", fields,
		part{"resume", "cv.pdf", []byte("%PDF cv")})
	w, _ = s.serve(t, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 删除岗位级联删除申请附件
	w, _ = s.do(t, http.MethodDelete, "/api/v1/admin/vacancies/"+vacancy.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestContactAndSubscribe(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})

	w, b := s.do(t, http.MethodPost, "/api/v1/contact", "", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request format", b.Error)

	msg := map[string]string{"name": "Sara", "email": "sara@example.com", "subject": "Hello", "message": "too short"}
	w, b = s.do(t, http.MethodPost, "/api/v1/contact", "", msg)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Message must be at least 10 characters long.", b.Error)

	msg["message"] = "I would like to volunteer."
	w, b = s.do(t, http.MethodPost, "/api/v1/contact", "", msg)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.MsgContactReceived, b.Message)

	var m model.ContactMessage
	require.NoError(t, s.db.First(&m).Error)
	require.NotNil(t, m.IPAddress)
	assert.Equal(t, "203.0.113.7", *m.IPAddress)

	token := s.login(t)
	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/contacts/"+m.ID+"/status", token, map[string]string{"status": "replied"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/contacts/"+m.ID+"/status", token, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, b = s.do(t, http.MethodPost, "/api/v1/subscribe", "", map[string]string{"email": "Reader@Example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.MsgSubscribed, b.Message)
	w, b = s.do(t, http.MethodPost, "/api/v1/subscribe", "", map[string]string{"email": "reader@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.MsgAlreadySubscribed, b.Message)

	var sub model.Subscriber
	require.NoError(t, s.db.First(&sub).Error)
	w, b = s.do(t, http.MethodGet, "/api/v1/unsubscribe/"+sub.Token, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.MsgUnsubscribed, b.Message)
	w, _ = s.do(t, http.MethodGet, "/api/v1/unsubscribe/unknown-token", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmissionRateLimit(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1})

	w, _ := s.do(t, http.MethodPost, "/api/v1/subscribe", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, b := s.do(t, http.MethodPost, "/api/v1/subscribe", "", map[string]string{"email": "b@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests. Please slow down.", b.Error)

	// 只读接口不限流
	for i := 0; i < 3; i++ {
		w, _ = s.do(t, http.MethodGet, "/api/v1/site", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestGenericEntities(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	token := s.login(t)

	w, b := s.do(t, http.MethodGet, "/api/v1/admin/entities", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	metas := decode[[]admin.Meta](t, b.Data)
	assert.Len(t, metas, len(admin.Names()))

	// 预热页面缓存
	w, _ = s.do(t, http.MethodGet, "/api/v1/about/principles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/about/principles", "", nil)
	require.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w, b = s.do(t, http.MethodPost, "/api/v1/admin/entities/principles", token, map[string]any{"title": "Integrity", "order": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.GuidingPrinciple](t, b.Data)
	assert.NotEmpty(t, created.ID)

	w, b = s.do(t, http.MethodGet, "/api/v1/about/principles", "", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	principles := decode[[]model.GuidingPrinciple](t, b.Data)
	require.Len(t, principles, 1)
	assert.Equal(t, "Integrity", principles[0].Title)

	w, b = s.do(t, http.MethodGet, "/api/v1/admin/entities/principles?q=integ", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[admin.Result](t, b.Data)
	assert.EqualValues(t, 1, result.Total)

	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/entities/posts", token, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/admin/entities/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/entities/principles", token, "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/admin/entities/principles/"+created.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/admin/entities/principles/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchAndSiteInfo(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})

	w, b := s.do(t, http.MethodGet, "/api/v1/site", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EIP Ethiopia", decode[service.SiteInfo](t, b.Data).Title)

	w, b = s.do(t, http.MethodGet, "/api/v1/search?q=", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[service.SearchPage](t, b.Data)
	assert.Empty(t, page.Items)

	w, _ = s.do(t, http.MethodGet, "/api/v1/home", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
