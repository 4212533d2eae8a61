// Package admin holds the static table that drives the generic admin list
// endpoints: which columns are listed, searched, filterable and read-only
// for every entity type.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/internal/model"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrNotEditable   = errors.New("entity is not editable through the generic endpoint")
	ErrNotFound      = errors.New("record not found")
)

// Entity 单个实体的后台展示规则
type Entity struct {
	Name    string
	Label   string
	Table   string
	Columns []string // 列表返回的列
	Search  []string // 模糊搜索的列
	Filters []string // 允许按等值过滤的列
	Order   string
	// ReadOnly 通过通用接口写入时忽略的列
	ReadOnly []string
	// New 非 nil 时允许通过通用接口创建/删除（只用于简单的站点内容）
	New func() any
}

var entities = []Entity{
	{
		Name: "posts", Label: "Posts", Table: "posts",
		Columns:  []string{"id", "title", "slug", "post_type", "status", "published_at", "views", "is_featured", "created_at"},
		Search:   []string{"title", "excerpt", "body"},
		Filters:  []string{"post_type", "status", "is_featured"},
		Order:    "created_at DESC",
		ReadOnly: []string{"id", "slug", "views", "created_at", "updated_at"},
	},
	{
		Name: "categories", Label: "Categories", Table: "categories",
		Columns: []string{"id", "name", "slug", "icon", "sort_order", "is_active"},
		Search:  []string{"name", "description"},
		Filters: []string{"is_active"},
		Order:   "sort_order, name",
	},
	{
		Name: "tags", Label: "Tags", Table: "tags",
		Columns: []string{"id", "name", "slug"},
		Search:  []string{"name"},
		Order:   "name",
	},
	{
		Name: "post-views", Label: "Post views", Table: "post_views",
		Columns:  []string{"id", "post_id", "ip_address", "viewed_at"},
		Search:   []string{"ip_address"},
		Filters:  []string{"post_id"},
		Order:    "viewed_at DESC",
		ReadOnly: []string{"id", "post_id", "ip_address", "viewed_at"},
	},
	{
		Name: "publication-categories", Label: "Publication categories", Table: "publication_categories",
		Columns: []string{"id", "name", "slug"},
		Search:  []string{"name"},
		Order:   "name",
	},
	{
		Name: "publications", Label: "Publications", Table: "publications",
		Columns:  []string{"id", "title", "slug", "category_id", "published_date", "download_count", "is_featured"},
		Search:   []string{"title", "description"},
		Filters:  []string{"category_id", "is_featured"},
		Order:    "published_date DESC",
		ReadOnly: []string{"id", "slug", "download_count", "created_at"},
	},
	{
		Name: "vacancies", Label: "Vacancies", Table: "vacancies",
		Columns:  []string{"id", "title", "slug", "job_type", "location", "deadline", "is_published", "created_at"},
		Search:   []string{"title", "description", "requirements", "location"},
		Filters:  []string{"job_type", "is_published"},
		Order:    "created_at DESC",
		ReadOnly: []string{"id", "slug", "created_at"},
	},
	{
		Name: "applications", Label: "Applications", Table: "applications",
		Columns:  []string{"id", "vacancy_id", "full_name", "email", "phone", "applied_at", "is_reviewed"},
		Search:   []string{"full_name", "email", "phone", "cover_letter"},
		Filters:  []string{"is_reviewed", "vacancy_id"},
		Order:    "applied_at DESC",
		ReadOnly: []string{"id", "vacancy_id", "full_name", "email", "phone", "cover_letter", "resume", "additional_documents", "applied_at", "ip_address"},
	},
	{
		Name: "contacts", Label: "Contact messages", Table: "contact_messages",
		Columns:  []string{"id", "name", "email", "subject", "status", "created_at"},
		Search:   []string{"name", "email", "subject", "message"},
		Filters:  []string{"status"},
		Order:    "created_at DESC",
		ReadOnly: []string{"id", "name", "email", "subject", "message", "created_at", "ip_address"},
	},
	{
		Name: "subscribers", Label: "Subscribers", Table: "subscribers",
		Columns:  []string{"id", "email", "is_active", "subscribed_at"},
		Search:   []string{"email"},
		Filters:  []string{"is_active"},
		Order:    "subscribed_at DESC",
		ReadOnly: []string{"id", "token", "subscribed_at"},
	},
	{
		Name: "slides", Label: "Slider images", Table: "slider_images",
		Columns:  []string{"id", "title", "image", "sort_order", "is_active", "link"},
		Search:   []string{"title", "description"},
		Filters:  []string{"is_active"},
		Order:    "sort_order",
		ReadOnly: []string{"id", "created_at", "updated_at"},
		New:      func() any { return &model.SliderImage{} },
	},
	{
		Name: "principles", Label: "Guiding principles", Table: "guiding_principles",
		Columns:  []string{"id", "title", "icon", "sort_order"},
		Search:   []string{"title", "description"},
		Order:    "sort_order",
		ReadOnly: []string{"id", "created_at", "updated_at"},
		New:      func() any { return &model.GuidingPrinciple{} },
	},
	{
		Name: "partners", Label: "Partners", Table: "partners",
		Columns:  []string{"id", "name", "logo", "website", "is_active"},
		Search:   []string{"name", "website"},
		Filters:  []string{"is_active"},
		Order:    "name",
		ReadOnly: []string{"id", "created_at", "updated_at"},
		New:      func() any { return &model.Partner{} },
	},
	{
		Name: "board", Label: "Board members", Table: "board_members",
		Columns:  []string{"id", "name", "position", "photo", "sort_order"},
		Search:   []string{"name", "position"},
		Order:    "sort_order",
		ReadOnly: []string{"id", "created_at", "updated_at"},
		New:      func() any { return &model.BoardMember{} },
	},
	{
		Name: "strategies", Label: "Strategies", Table: "strategies",
		Columns:  []string{"id", "title", "icon", "sort_order"},
		Search:   []string{"title", "description"},
		Order:    "sort_order",
		ReadOnly: []string{"id", "created_at", "updated_at"},
		New:      func() any { return &model.Strategy{} },
	},
}

var byName = func() map[string]*Entity {
	m := make(map[string]*Entity, len(entities))
	for i := range entities {
		m[entities[i].Name] = &entities[i]
	}
	return m
}()

// Lookup 按 URL 名称查找实体
func Lookup(name string) (*Entity, bool) {
	e, ok := byName[name]
	return e, ok
}

// Names 全部实体名称（有序）
func Names() []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Meta 实体的描述信息，供后台前端渲染表格
type Meta struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Columns  []string `json:"columns"`
	Search   []string `json:"search"`
	Filters  []string `json:"filters"`
	ReadOnly []string `json:"read_only"`
	Editable bool     `json:"editable"`
}

// Describe 按名称排序返回全部实体的描述
func Describe() []Meta {
	out := make([]Meta, 0, len(entities))
	for _, name := range Names() {
		e := byName[name]
		out = append(out, Meta{
			Name:     e.Name,
			Label:    e.Label,
			Columns:  e.Columns,
			Search:   e.Search,
			Filters:  e.Filters,
			ReadOnly: e.ReadOnly,
			Editable: e.New != nil,
		})
	}
	return out
}

// Query 通用列表参数
type Query struct {
	Search  string
	Filters map[string]string
	Offset  int
	Limit   int
}

// Result 通用列表结果
type Result struct {
	Entity string           `json:"entity"`
	Label  string           `json:"label"`
	Total  int64            `json:"total"`
	Rows   []map[string]any `json:"rows"`
}

// Lister 基于实体表执行查询
type Lister struct {
	db *gorm.DB
}

func NewLister(db *gorm.DB) *Lister { return &Lister{db: db} }

func (l *Lister) List(ctx context.Context, name string, q Query) (*Result, error) {
	e, ok := Lookup(name)
	if !ok {
		return nil, ErrUnknownEntity
	}
	build := func() *gorm.DB {
		tx := l.db.WithContext(ctx).Table(e.Table)
		if s := strings.TrimSpace(q.Search); s != "" && len(e.Search) > 0 {
			pat := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s)) + "%"
			conds := make([]string, 0, len(e.Search))
			args := make([]any, 0, len(e.Search))
			for _, col := range e.Search {
				conds = append(conds, "LOWER("+col+`) LIKE ? ESCAPE '\'`)
				args = append(args, pat)
			}
			tx = tx.Where(strings.Join(conds, " OR "), args...)
		}
		// 只接受表中声明的过滤列，列名不来自用户输入
		for _, col := range e.Filters {
			v, ok := q.Filters[col]
			if !ok || v == "" {
				continue
			}
			switch v {
			case "true":
				tx = tx.Where(col+" = ?", true)
			case "false":
				tx = tx.Where(col+" = ?", false)
			default:
				tx = tx.Where(col+" = ?", v)
			}
		}
		return tx
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0)
	err := build().Select(e.Columns).Order(e.Order).Offset(q.Offset).Limit(q.Limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return &Result{Entity: e.Name, Label: e.Label, Total: total, Rows: rows}, nil
}

// Create 通过通用接口创建简单实体；只读列被清空
func (l *Lister) Create(ctx context.Context, name string, decode func(any) error) (any, error) {
	e, ok := Lookup(name)
	if !ok {
		return nil, ErrUnknownEntity
	}
	if e.New == nil {
		return nil, ErrNotEditable
	}
	obj := e.New()
	if err := decode(obj); err != nil {
		return nil, err
	}
	// 主键和时间戳由服务端生成
	if b, ok := obj.(interface{ ResetBase() }); ok {
		b.ResetBase()
	}
	if err := l.db.WithContext(ctx).Create(obj).Error; err != nil {
		return nil, fmt.Errorf("create %s: %w", e.Name, err)
	}
	return obj, nil
}

// Delete 通过通用接口删除简单实体
func (l *Lister) Delete(ctx context.Context, name, id string) error {
	e, ok := Lookup(name)
	if !ok {
		return ErrUnknownEntity
	}
	if e.New == nil {
		return ErrNotEditable
	}
	res := l.db.WithContext(ctx).Delete(e.New(), "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
