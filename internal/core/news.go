package core

import (
	"context"
	"crypto/md5"
	"fmt"

	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
)

type NewsRepository interface {
	SaveCategories(ctx context.Context) error
	RefreshNews(ctx context.Context) error
	GetAllNews(owner *scope.Scope, publishEnabled bool, publishedUntil int64) flow.Flow[[]NewsWithCreators]
	SaveNewsItem(ctx context.Context, item News) (News, error)
	EditNewsItem(ctx context.Context, item News) (News, error)
	RemoveNewsItemById(ctx context.Context, id int) error
	GetAllNewsCategories() flow.Flow[[]NewsCategory]
	FilterNewsByCategory(newsCategoryId int) flow.Flow[[]NewsWithCreators]
	FilterNewsByPublishDate(dateStart int64, dateEnd int64) flow.Flow[[]NewsWithCreators]
	FilterNewsByCategoryAndPublishDate(newsCategoryId int, dateStart int64, dateEnd int64) flow.Flow[[]NewsWithCreators]
}

// NewsSource is the upstream that RefreshNews pulls items from.
type NewsSource interface {
	FetchNews(ctx context.Context) ([]RemoteNewsItem, error)
}

type NewsCategory struct {
	Id      int    `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Deleted bool   `db:"deleted" json:"deleted"`
}

type News struct {
	Id             *int   `db:"id" json:"id"`
	NewsCategoryId int    `db:"news_category_id" json:"newsCategoryId"`
	Title          string `db:"title" json:"title"`
	Description    string `db:"description" json:"description"`
	CreatorId      int    `db:"creator_id" json:"creatorId"`
	CreateDate     int64  `db:"create_date" json:"createDate"`
	PublishDate    int64  `db:"publish_date" json:"publishDate"`
	PublishEnabled bool   `db:"publish_enabled" json:"publishEnabled"`
}

type NewsWithCreators struct {
	News     News         `json:"news"`
	Category NewsCategory `json:"category"`
	Creator  User         `json:"creator"`
}

type RemoteNewsItem struct {
	ExternalId     string
	NewsCategoryId int
	Title          string
	Description    string
	Link           string
	PublishDate    int64
}

func ExternalNewsId(title string, link string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(title+":"+link)))
}
