package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/pkg/database/dbtest"
)

func TestPublicationListAndDownloads(t *testing.T) {
	db := dbtest.New(t)
	repo := NewPublicationRepository(db)
	ctx := context.Background()

	reports := &model.PublicationCategory{Name: "Annual Reports", Slug: "annual-reports"}
	briefs := &model.PublicationCategory{Name: "Briefs", Slug: "briefs"}
	require.NoError(t, repo.CreateCategory(ctx, reports))
	require.NoError(t, repo.CreateCategory(ctx, briefs))

	older := &model.Publication{Title: "Report 2024", Slug: "report-2024", CategoryID: reports.ID, File: "f1.pdf", PublishedDate: testNow.AddDate(-1, 0, 0)}
	newer := &model.Publication{Title: "Report 2025", Slug: "report-2025", CategoryID: reports.ID, File: "f2.pdf", PublishedDate: testNow, IsFeatured: true}
	brief := &model.Publication{Title: "Policy brief", Slug: "policy-brief", CategoryID: briefs.ID, File: "f3.pdf", PublishedDate: testNow}
	for _, p := range []*model.Publication{older, newer, brief} {
		require.NoError(t, repo.Create(ctx, p))
	}

	res, total, err := repo.List(ctx, PublicationFilter{CategorySlug: "annual-reports"}, 0, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, res, 2)
	assert.Equal(t, "report-2025", res[0].Slug)
	require.NotNil(t, res[0].Category)
	assert.Equal(t, "Annual Reports", res[0].Category.Name)

	related, err := repo.Related(ctx, older, 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "report-2025", related[0].Slug)

	featured, err := repo.Featured(ctx, 4)
	require.NoError(t, err)
	require.Len(t, featured, 1)

	// 按分类名命中
	found, err := repo.Search(ctx, "annual")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementDownloads(context.Background(), brief.ID))
		}()
	}
	wg.Wait()
	got, err := repo.GetBySlug(ctx, "policy-brief")
	require.NoError(t, err)
	assert.EqualValues(t, 20, got.DownloadCount)

	got.Title = "Policy brief v2"
	got.DownloadCount = 0
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, brief.ID)
	require.NoError(t, err)
	assert.Equal(t, "Policy brief v2", got.Title)
	assert.EqualValues(t, 20, got.DownloadCount)

	require.NoError(t, repo.Delete(ctx, brief.ID))
	_, err = repo.GetBySlug(ctx, "policy-brief")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVacancyOpenAndCascadeDelete(t *testing.T) {
	db := dbtest.New(t)
	vacancies := NewVacancyRepository(db)
	apps := NewApplicationRepository(db)
	ctx := context.Background()

	open := &model.Vacancy{Title: "Field Officer", Slug: "field-officer", JobType: model.JobTypeFullTime, Location: "Nairobi", Deadline: model.DateOf(testNow), IsPublished: true}
	closed := &model.Vacancy{Title: "Field Driver", Slug: "field-driver", JobType: model.JobTypeContract, Deadline: model.DateOf(testNow).AddDate(0, 0, -1), IsPublished: true}
	hidden := &model.Vacancy{Title: "Field Intern", Slug: "field-intern", JobType: model.JobTypeInternship, Deadline: model.DateOf(testNow).AddDate(0, 1, 0)}
	for _, v := range []*model.Vacancy{open, closed, hidden} {
		require.NoError(t, vacancies.Create(ctx, v))
	}

	res, total, err := vacancies.ListOpen(ctx, testNow, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, res, 1)
	assert.Equal(t, "field-officer", res[0].Slug)

	found, err := vacancies.Search(ctx, "nairobi", testNow)
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = vacancies.GetPublishedBySlug(ctx, "field-intern")
	assert.ErrorIs(t, err, ErrNotFound)

	openV, err := vacancies.GetOpenBySlug(ctx, "field-officer", testNow)
	require.NoError(t, err)
	assert.Equal(t, open.ID, openV.ID)
	for _, slug := range []string{"field-driver", "field-intern"} {
		_, err = vacancies.GetOpenBySlug(ctx, slug, testNow)
		assert.ErrorIs(t, err, ErrNotFound, slug)
	}

	a := &model.Application{ID: "app-1", VacancyID: open.ID, FullName: "A", Email: "a@example.org", Phone: "1", CoverLetter: "c", Resume: "r1.pdf", AdditionalDocuments: "d1.pdf", AppliedAt: testNow}
	b := &model.Application{ID: "app-2", VacancyID: open.ID, FullName: "B", Email: "b@example.org", Phone: "2", CoverLetter: "c", Resume: "r2.pdf", AppliedAt: testNow}
	require.NoError(t, apps.Create(ctx, a))
	require.NoError(t, apps.Create(ctx, b))

	require.NoError(t, apps.MarkReviewed(ctx, "app-1", true))
	got, err := apps.GetByID(ctx, "app-1")
	require.NoError(t, err)
	assert.True(t, got.IsReviewed)

	files, err := vacancies.Delete(ctx, open.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1.pdf", "d1.pdf", "r2.pdf"}, files)

	_, total, err = apps.ListByVacancy(ctx, open.ID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = vacancies.Delete(ctx, open.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscriberCreateIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	repo := NewSubscriberRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Subscriber{ID: "s1", Email: "a@example.org", IsActive: true, Token: "t1", SubscribedAt: testNow})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, &model.Subscriber{ID: "s2", Email: "a@example.org", IsActive: true, Token: "t2", SubscribedAt: testNow})
	require.NoError(t, err)
	assert.False(t, created)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, repo.DeactivateByToken(ctx, "t1"))
	s, err := repo.GetByEmail(ctx, "a@example.org")
	require.NoError(t, err)
	assert.False(t, s.IsActive)
	assert.ErrorIs(t, repo.DeactivateByToken(ctx, "nope"), ErrNotFound)
}

func TestContactUpdateStatus(t *testing.T) {
	db := dbtest.New(t)
	repo := NewContactRepository(db)
	ctx := context.Background()

	m := &model.ContactMessage{Name: "N", Email: "n@example.org", Subject: "S", Message: "hello there", Status: model.ContactStatusNew}
	require.NoError(t, repo.Create(ctx, m))
	require.NoError(t, repo.UpdateStatus(ctx, m.ID, model.ContactStatusReplied))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusReplied, got.Status)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", model.ContactStatusRead), ErrNotFound)
}

func TestStatRecordUpserts(t *testing.T) {
	db := dbtest.New(t)
	repo := NewStatRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Record(ctx, StatPostView, "p1", testNow.Add(time.Duration(i)*time.Minute)))
	}
	require.NoError(t, repo.Record(ctx, StatPostView, "p1", testNow.AddDate(0, 0, 1)))

	hits, err := repo.Hits(ctx, StatPostView, "p1", testNow)
	require.NoError(t, err)
	assert.EqualValues(t, 3, hits)

	hits, err = repo.Hits(ctx, StatPostView, "p1", testNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits)
}

func TestSiteOrdering(t *testing.T) {
	db := dbtest.New(t)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.GuidingPrinciple{Title: "Second", Order: 2}).Error)
	require.NoError(t, db.Create(&model.GuidingPrinciple{Title: "First", Order: 1}).Error)
	require.NoError(t, db.Create(&model.SliderImage{Title: "Hidden", IsActive: false}).Error)
	require.NoError(t, db.Create(&model.SliderImage{Title: "Shown", IsActive: true}).Error)

	ps, err := repo.Principles(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "First", ps[0].Title)

	slides, err := repo.ActiveSlides(ctx)
	require.NoError(t, err)
	require.Len(t, slides, 1)
	assert.Equal(t, "Shown", slides[0].Title)
}
