package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/notify"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/database/dbtest"
	"github.com/d60-Lab/eip-site/pkg/mailer"
	"github.com/d60-Lab/eip-site/pkg/storage/memory"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db    *gorm.DB
	cfg   *config.Config
	clock Clock
	cache *cache.RedisCache
	redis *miniredis.Miniredis
	store *memory.Backend
	mail  *mailer.Recorder

	posts        repository.PostRepository
	taxonomy     repository.TaxonomyRepository
	publications repository.PublicationRepository
	vacancies    repository.VacancyRepository
	applications repository.ApplicationRepository
	contacts     repository.ContactRepository
	subscribers  repository.SubscriberRepository
	stats        repository.StatRepository
	site         repository.SiteRepository
	notifier     notify.Notifier
	hits         HitRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		Mail: config.MailConfig{AdminEmail: "admin@example.org", Timeout: time.Second},
		Site: config.SiteConfig{Title: "EIP Ethiopia", URL: "http://localhost:8080"},
		Intake: config.IntakeConfig{
			MaxUploadBytes:     5 << 20,
			MinMessageLength:   10,
			DisposableDomains:  []string{"mailinator.com"},
			AllowedResumeTypes: []string{".pdf", ".doc", ".docx"},
		},
		Cache: config.CacheConfig{HomeTTL: time.Minute, CategoriesTTL: time.Minute, PageTTL: time.Minute},
	}
	rec := &mailer.Recorder{}
	env := &testEnv{
		db:           db,
		cfg:          cfg,
		clock:        func() time.Time { return testNow },
		cache:        cache.NewRedisWithClient(client, "test:"),
		redis:        mr,
		store:        memory.New(),
		mail:         rec,
		posts:        repository.NewPostRepository(db),
		taxonomy:     repository.NewTaxonomyRepository(db),
		publications: repository.NewPublicationRepository(db),
		vacancies:    repository.NewVacancyRepository(db),
		applications: repository.NewApplicationRepository(db),
		contacts:     repository.NewContactRepository(db),
		subscribers:  repository.NewSubscriberRepository(db),
		stats:        repository.NewStatRepository(db),
		site:         repository.NewSiteRepository(db),
	}
	env.notifier = notify.New(rec, cfg.Mail, cfg.Site)
	env.hits = NewHitWriter(env.posts, env.stats)
	return env
}

func (e *testEnv) postService() PostService {
	return NewPostService(e.posts, e.taxonomy, e.hits, e.cache, e.cfg.Cache, e.clock)
}

func (e *testEnv) publicationService() PublicationService {
	return NewPublicationService(e.publications, e.hits, e.store, e.cache, e.cfg, e.clock)
}

func (e *testEnv) vacancyService() VacancyService {
	return NewVacancyService(e.vacancies, e.applications, e.store, e.notifier, e.cache, e.cfg.Intake, e.clock)
}

func upload(name string, size int) *Upload {
	return &Upload{
		Filename:    name,
		Size:        int64(size),
		ContentType: "application/octet-stream",
		Body:        bytes.NewReader(bytes.Repeat([]byte("x"), size)),
	}
}

func assertValidation(t *testing.T, err error, field string) *ValidationError {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, field, ve.Field)
	return ve
}

func TestPaginate(t *testing.T) {
	page, size, offset := paginate(0, 0, 9, 9)
	assert.Equal(t, 1, page)
	assert.Equal(t, 9, size)
	assert.Equal(t, 0, offset)

	page, size, offset = paginate(3, 500, 20, 100)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, size)
	assert.Equal(t, 200, offset)

	p := newPage[int](nil, 10, 1, 9)
	assert.Equal(t, 2, p.Pages)
	assert.NotNil(t, p.Items)
}

func TestIPOrNil(t *testing.T) {
	assert.Nil(t, ipOrNil("not-an-ip"))
	assert.Nil(t, ipOrNil(""))
	got := ipOrNil(" 10.0.0.1 ")
	require.NotNil(t, got)
	assert.Equal(t, "10.0.0.1", *got)
}

func TestCreateWithSlugRetriesOnDuplicate(t *testing.T) {
	ctx := context.Background()
	calls := 0
	never := func(context.Context, string) (bool, error) { return false, nil }

	err := createWithSlug(ctx, "Hello", "post", never, func(string) error {
		calls++
		if calls < 3 {
			return repository.ErrDuplicate
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = createWithSlug(ctx, "Hello", "post", never, func(string) error { return repository.ErrDuplicate })
	assert.ErrorIs(t, err, ErrSlugConflict)

	var got string
	require.NoError(t, createWithSlug(ctx, "!!!", "post", never, func(s string) error { got = s; return nil }))
	assert.Equal(t, "post", got)
}

func TestInvalidateClearsPageCache(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.cache.Set(ctx, PageCachePrefix+"/api/v1/posts", []byte("x"), time.Minute))
	require.NoError(t, e.cache.Set(ctx, cacheKeyHome, []byte("x"), time.Minute))
	require.NoError(t, e.cache.Set(ctx, "unrelated", []byte("x"), time.Minute))

	invalidate(ctx, e.cache, cacheKeyHome)

	assert.False(t, e.redis.Exists("test:"+PageCachePrefix+"/api/v1/posts"))
	assert.False(t, e.redis.Exists("test:"+cacheKeyHome))
	assert.True(t, e.redis.Exists("test:unrelated"))
}

func seedCategory(t *testing.T, e *testEnv, name string) *model.Category {
	t.Helper()
	c, err := NewTaxonomyService(e.taxonomy, e.publications, e.cache).CreateCategory(context.Background(), CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}
