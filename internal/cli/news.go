package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/viewmodel"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Read and manage news",
	}
	cmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "do not fetch the remote feeds")
	cmd.AddCommand(newsListCmd(opts), newsCategoriesCmd(opts), newsAddCmd(opts), newsRmCmd(opts), newsRefreshCmd(opts))
	return cmd
}

// withNews runs fn with a news view model that lives as long as the command.
// fn starts after the initial category sync and refresh.
func (o *rootOptions) withNews(cmd *cobra.Command, fn func(vm *viewmodel.NewsViewModel) error) error {
	appContext, closeApp, err := o.openApp()
	if err != nil {
		return err
	}
	defer closeApp()
	vm := viewmodel.NewNewsViewModel(cmd.Context(), appContext.Deps.NewsRepository)
	defer vm.Close()
	select {
	case <-vm.Ready():
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}
	return fn(vm)
}

func newsListCmd(opts *rootOptions) *cobra.Command {
	var desc bool
	var category int
	var from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published news, or filter by category and publish date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			byCategory := cmd.Flags().Changed("category")
			byDate := cmd.Flags().Changed("from")
			if byDate != cmd.Flags().Changed("to") {
				return errors.New("--from and --to must be given together")
			}
			var dateStart, dateEnd int64
			if byDate {
				var err error
				if dateStart, err = parseDate(from); err != nil {
					return err
				}
				if dateEnd, err = parseDate(to); err != nil {
					return err
				}
			}
			return opts.withNews(cmd, func(vm *viewmodel.NewsViewModel) error {
				var news flow.Flow[[]core.NewsWithCreators]
				switch {
				case byCategory && byDate:
					news = vm.FilterNewsByCategoryAndPublishDate(category, dateStart, dateEnd)
				case byCategory:
					news = vm.FilterNewsByCategory(category)
				case byDate:
					news = vm.FilterNewsByPublishDate(dateStart, dateEnd)
				default:
					if desc {
						vm.OnSortDirectionButtonClicked()
					}
					news = vm.Data()
				}
				items, err := flow.First(cmd.Context(), news)
				if errors.Is(err, flow.ErrEmpty) {
					return errors.New(vm.LoadNewsExceptionEvent.Name())
				}
				if err != nil {
					return err
				}
				if desc && (byCategory || byDate) {
					items = lo.Reverse(slices.Clone(items))
				}
				printNews(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&desc, "desc", false, "newest first")
	cmd.Flags().IntVar(&category, "category", 0, "only news in this category")
	cmd.Flags().StringVar(&from, "from", "", "published at or after (date, RFC3339 or epoch millis)")
	cmd.Flags().StringVar(&to, "to", "", "published at or before (date, RFC3339 or epoch millis)")
	return cmd
}

func printNews(out io.Writer, news []core.NewsWithCreators) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPUBLISHED\tCATEGORY\tTITLE\tCREATOR")
	for _, n := range news {
		id := 0
		if n.News.Id != nil {
			id = *n.News.Id
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", id, formatMillis(n.News.PublishDate), n.Category.Name, n.News.Title, n.Creator.FullName())
	}
	w.Flush()
}

func newsCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List news categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withNews(cmd, func(vm *viewmodel.NewsViewModel) error {
				categories, err := flow.First(cmd.Context(), vm.GetAllNewsCategories())
				if errors.Is(err, flow.ErrEmpty) {
					return errors.New(vm.LoadNewsCategoriesExceptionEvent.Name())
				}
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME")
				for _, category := range categories {
					fmt.Fprintf(w, "%v\t%v\n", category.Id, category.Name)
				}
				return w.Flush()
			})
		},
	}
}

func newsAddCmd(opts *rootOptions) *cobra.Command {
	var item core.News
	var published string
	var draft bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a news item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			publishDate, err := parseDate(published)
			if err != nil {
				return err
			}
			item.PublishDate = publishDate
			item.PublishEnabled = !draft
			return opts.withNews(cmd, func(vm *viewmodel.NewsViewModel) error {
				fired := viewmodel.Await(func() *scope.Job {
					return vm.Save(item)
				}, vm.NewsItemCreatedEvent, vm.SaveNewsItemExceptionEvent)
				return report(cmd.OutOrStdout(), fired, vm.NewsItemCreatedEvent, vm.SaveNewsItemExceptionEvent)
			})
		},
	}
	cmd.Flags().StringVar(&item.Title, "title", "", "title")
	cmd.Flags().StringVar(&item.Description, "description", "", "description")
	cmd.Flags().IntVar(&item.NewsCategoryId, "category", 1, "category id")
	cmd.Flags().IntVar(&item.CreatorId, "creator", 0, "creator user id")
	cmd.Flags().StringVar(&published, "published", "", "publish date (date, RFC3339 or epoch millis)")
	cmd.Flags().BoolVar(&draft, "draft", false, "do not publish")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("creator")
	cmd.MarkFlagRequired("published")
	return cmd
}

func newsRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a news item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := intArg("news id", args[0])
			if err != nil {
				return err
			}
			return opts.withNews(cmd, func(vm *viewmodel.NewsViewModel) error {
				fired := viewmodel.Await(func() *scope.Job {
					return vm.Remove(id)
				}, vm.RemoveNewsItemExceptionEvent)
				if err := report(cmd.OutOrStdout(), fired, nil, vm.RemoveNewsItemExceptionEvent); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed news item %v\n", id)
				return nil
			})
		},
	}
}

func newsRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the remote feeds into the news list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withNews(cmd, func(vm *viewmodel.NewsViewModel) error {
				fired := viewmodel.Await(vm.OnRefresh, vm.LoadNewsExceptionEvent)
				if err := report(cmd.OutOrStdout(), fired, nil, vm.LoadNewsExceptionEvent); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "news refreshed")
				return nil
			})
		},
	}
}
