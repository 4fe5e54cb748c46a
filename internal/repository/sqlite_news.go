package repository

import (
	"cmp"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/repository/db"
	"github.com/bjarke-xyz/fmh/metrics"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

const categoriesCacheKey = "news_categories"

const importChunkSize = 100

type sqliteNewsRepository struct {
	appContext *core.AppContext
	changes    *flow.State[uint64]
	categories *gocache.Cache
	now        func() time.Time
}

func NewSqliteNews(appContext *core.AppContext) core.NewsRepository {
	return newSqliteNews(appContext)
}

func newSqliteNews(appContext *core.AppContext) *sqliteNewsRepository {
	return &sqliteNewsRepository{
		appContext: appContext,
		changes:    flow.NewState[uint64](0),
		categories: gocache.New(10*time.Minute, 20*time.Minute),
		now:        time.Now,
	}
}

//go:embed sitedata
var dataFs embed.FS

func (r *sqliteNewsRepository) GetSiteCategories() ([]core.NewsCategory, error) {
	jsonBytes, err := dataFs.ReadFile("sitedata/categories.json")
	if err != nil {
		return nil, fmt.Errorf("could not load categories.json: %w", err)
	}
	var categories []core.NewsCategory
	err = json.Unmarshal(jsonBytes, &categories)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *sqliteNewsRepository) SaveCategories(ctx context.Context) error {
	categories, err := r.GetSiteCategories()
	if err != nil {
		return err
	}
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, "INSERT INTO news_categories (id, name, deleted) VALUES (:id, :name, :deleted) "+
		"ON CONFLICT(id) DO UPDATE SET name = excluded.name, deleted = excluded.deleted", categories)
	if err != nil {
		return fmt.Errorf("failed to save categories: %w", err)
	}
	r.categories.Delete(categoriesCacheKey)
	bump(r.changes)
	return nil
}

type importRow struct {
	NewsCategoryId int    `db:"news_category_id"`
	Title          string `db:"title"`
	Description    string `db:"description"`
	CreatorId      int    `db:"creator_id"`
	CreateDate     int64  `db:"create_date"`
	PublishDate    int64  `db:"publish_date"`
	ExternalId     string `db:"external_id"`
}

// RefreshNews pulls the remote items and upserts them by external id.
func (r *sqliteNewsRepository) RefreshNews(ctx context.Context) error {
	source := r.appContext.Deps.NewsSource
	if source == nil {
		log.Printf("RefreshNews: no news source configured")
		return nil
	}
	items, err := source.FetchNews(ctx)
	if err != nil {
		return fmt.Errorf("error fetching news: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	now := r.now().UnixMilli()
	rows := lo.Map(items, func(item core.RemoteNewsItem, _ int) importRow {
		return importRow{
			NewsCategoryId: item.NewsCategoryId,
			Title:          item.Title,
			Description:    item.Description,
			CreatorId:      r.appContext.Config.NewsFeedCreatorId,
			CreateDate:     now,
			PublishDate:    item.PublishDate,
			ExternalId:     item.ExternalId,
		}
	})
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	for _, chunk := range lo.Chunk(rows, importChunkSize) {
		_, err = tx.NamedExecContext(ctx, "INSERT INTO news (news_category_id, title, description, creator_id, create_date, publish_date, publish_enabled, external_id) "+
			"VALUES (:news_category_id, :title, :description, :creator_id, :create_date, :publish_date, 1, :external_id) "+
			"ON CONFLICT(external_id) DO UPDATE SET title = excluded.title, description = excluded.description, publish_date = excluded.publish_date", chunk)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert news: %w", err)
		}
	}
	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	log.Printf("RefreshNews: upserted %v items", len(rows))
	metrics.NewsItemsImportedAdd(len(rows))
	bump(r.changes)
	return nil
}

type newsRow struct {
	core.News
	CreatorLastName   string `db:"creator_last_name"`
	CreatorFirstName  string `db:"creator_first_name"`
	CreatorMiddleName string `db:"creator_middle_name"`
}

func (r *sqliteNewsRepository) selectNews(ctx context.Context, where string, args ...any) ([]core.NewsWithCreators, error) {
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return nil, err
	}
	var rows []newsRow
	sqlQuery := fmt.Sprintf("SELECT %v, u.last_name AS creator_last_name, u.first_name AS creator_first_name, u.middle_name AS creator_middle_name "+
		"FROM news n JOIN users u ON u.id = n.creator_id WHERE %v ORDER BY n.publish_date, n.id", DBTags(core.News{}, "n"), where)
	err = db.SelectContext(ctx, &rows, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("error getting news: %w", err)
	}
	news := make([]core.NewsWithCreators, len(rows))
	for i, row := range rows {
		news[i] = core.NewsWithCreators{
			News: row.News,
			Creator: core.User{
				Id:         row.CreatorId,
				LastName:   row.CreatorLastName,
				FirstName:  row.CreatorFirstName,
				MiddleName: row.CreatorMiddleName,
			},
		}
	}
	r.EnrichWithCategories(ctx, news)
	return news, nil
}

// GetAllNews streams the news with the given publish flag published at or
// before publishedUntil, oldest first, until owner is cancelled.
func (r *sqliteNewsRepository) GetAllNews(owner *scope.Scope, publishEnabled bool, publishedUntil int64) flow.Flow[[]core.NewsWithCreators] {
	return ownedBy(owner, liveQuery(r.changes, func(ctx context.Context) ([]core.NewsWithCreators, error) {
		return r.selectNews(ctx, "n.publish_enabled = ? AND n.publish_date <= ?", publishEnabled, publishedUntil)
	}))
}

func (r *sqliteNewsRepository) SaveNewsItem(ctx context.Context, item core.News) (core.News, error) {
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return item, err
	}
	if item.CreateDate == 0 {
		item.CreateDate = r.now().UnixMilli()
	}
	result, err := db.NamedExecContext(ctx, "INSERT INTO news (news_category_id, title, description, creator_id, create_date, publish_date, publish_enabled) "+
		"VALUES (:news_category_id, :title, :description, :creator_id, :create_date, :publish_date, :publish_enabled)", item)
	if err != nil {
		return item, fmt.Errorf("failed to insert news item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return item, fmt.Errorf("failed to get news item id: %w", err)
	}
	newsId := int(id)
	item.Id = &newsId
	bump(r.changes)
	return item, nil
}

func (r *sqliteNewsRepository) EditNewsItem(ctx context.Context, item core.News) (core.News, error) {
	if item.Id == nil {
		return item, fmt.Errorf("news item has no id: %w", core.ErrNotFound)
	}
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return item, err
	}
	result, err := db.NamedExecContext(ctx, "UPDATE news SET news_category_id = :news_category_id, title = :title, description = :description, "+
		"publish_date = :publish_date, publish_enabled = :publish_enabled WHERE id = :id", item)
	if err != nil {
		return item, fmt.Errorf("failed to update news item %v: %w", *item.Id, err)
	}
	if err := expectAffected(result, "news item", *item.Id); err != nil {
		return item, err
	}
	bump(r.changes)
	return item, nil
}

func (r *sqliteNewsRepository) RemoveNewsItemById(ctx context.Context, id int) error {
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return err
	}
	result, err := db.ExecContext(ctx, "DELETE FROM news WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete news item %v: %w", id, err)
	}
	if err := expectAffected(result, "news item", id); err != nil {
		return err
	}
	bump(r.changes)
	return nil
}

func (r *sqliteNewsRepository) GetAllNewsCategories() flow.Flow[[]core.NewsCategory] {
	return liveQuery(r.changes, func(ctx context.Context) ([]core.NewsCategory, error) {
		categories, err := r.categoriesById(ctx)
		if err != nil {
			return nil, err
		}
		active := lo.Filter(lo.Values(categories), func(c core.NewsCategory, _ int) bool {
			return !c.Deleted
		})
		slices.SortFunc(active, func(i, j core.NewsCategory) int {
			return cmp.Compare(i.Id, j.Id)
		})
		return active, nil
	})
}

func (r *sqliteNewsRepository) FilterNewsByCategory(newsCategoryId int) flow.Flow[[]core.NewsWithCreators] {
	return liveQuery(r.changes, func(ctx context.Context) ([]core.NewsWithCreators, error) {
		return r.selectNews(ctx, "n.news_category_id = ?", newsCategoryId)
	})
}

func (r *sqliteNewsRepository) FilterNewsByPublishDate(dateStart int64, dateEnd int64) flow.Flow[[]core.NewsWithCreators] {
	return liveQuery(r.changes, func(ctx context.Context) ([]core.NewsWithCreators, error) {
		return r.selectNews(ctx, "n.publish_date BETWEEN ? AND ?", dateStart, dateEnd)
	})
}

func (r *sqliteNewsRepository) FilterNewsByCategoryAndPublishDate(newsCategoryId int, dateStart int64, dateEnd int64) flow.Flow[[]core.NewsWithCreators] {
	return liveQuery(r.changes, func(ctx context.Context) ([]core.NewsWithCreators, error) {
		return r.selectNews(ctx, "n.news_category_id = ? AND n.publish_date BETWEEN ? AND ?", newsCategoryId, dateStart, dateEnd)
	})
}

func (r *sqliteNewsRepository) categoriesById(ctx context.Context) (map[int]core.NewsCategory, error) {
	if cached, ok := r.categories.Get(categoriesCacheKey); ok {
		return cached.(map[int]core.NewsCategory), nil
	}
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return nil, err
	}
	var categories []core.NewsCategory
	err = db.SelectContext(ctx, &categories, fmt.Sprintf("SELECT %v FROM news_categories", DBTags(core.NewsCategory{}, "")))
	if err != nil {
		return nil, fmt.Errorf("error getting categories: %w", err)
	}
	byId := lo.KeyBy(categories, func(c core.NewsCategory) int { return c.Id })
	r.categories.SetDefault(categoriesCacheKey, byId)
	return byId, nil
}

func (r *sqliteNewsRepository) EnrichWithCategories(ctx context.Context, news []core.NewsWithCreators) {
	if len(news) == 0 {
		return
	}
	categories, err := r.categoriesById(ctx)
	if err != nil {
		log.Printf("EnrichWithCategories: %v", err)
		return
	}
	for i, n := range news {
		category, ok := categories[n.News.NewsCategoryId]
		if ok {
			n.Category = category
			news[i] = n
		}
	}
}

// DBTags lists the db tags of v's fields as a select list. With a table alias
// every column is qualified and aliased back to its bare name.
func DBTags(v interface{}, alias string) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem() // Get the element type if it's a pointer
	}

	var tags []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		if dbTag == "" {
			continue
		}
		if alias != "" {
			dbTag = fmt.Sprintf("%v.%v AS %v", alias, dbTag, dbTag)
		}
		tags = append(tags, dbTag)
	}
	return strings.Join(tags, ", ")
}
