package storefront

import (
	"context"
	"fmt"
	"strconv"

	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/reviews"
)

const (
	// ActionReviewPage switches the reviews screen to page Arg.
	ActionReviewPage nav.ActionID = "rev"
	reviewPageKey                 = "review_page"
	captionLimit                  = 900
)

// OpenReviews is the transition into the reviews screen; it always lands on
// the first page.
func OpenReviews(id nav.ScreenID) nav.Transition {
	return nav.Transition{
		To: id,
		Do: func(_ context.Context, e *nav.Effect) error {
			delete(e.Session.Selection, reviewPageKey)
			return nil
		},
	}
}

// ReviewsScreen shows one page of reviews as an album, newest first, with
// a pager underneath.
func ReviewsScreen(id nav.ScreenID, repo *reviews.Repository, texts func(lang string) ReviewTexts) *nav.Screen {
	return &nav.Screen{
		ID: id,
		Render: func(ctx context.Context, v *nav.View) (nav.Render, error) {
			return renderReviews(ctx, repo, texts(v.Lang), v.Selected(reviewPageKey))
		},
		Transitions: map[nav.ActionID]nav.Transition{
			ActionReviewPage: {To: id, Select: reviewPageKey, Valid: validPage},
		},
	}
}

func validPage(arg string) bool {
	n, err := strconv.Atoi(arg)
	return err == nil && n > 0
}

func renderReviews(ctx context.Context, repo *reviews.Repository, t ReviewTexts, selected string) (nav.Render, error) {
	back := nav.Row(nav.Btn(t.Back, nav.Act(nav.ActionHome)))

	total, err := repo.Count(ctx)
	if err != nil {
		return nav.Render{}, err
	}
	if total == 0 {
		return nav.Render{Text: t.Empty, Keyboard: [][]nav.Button{back}}, nil
	}

	pages := reviews.TotalPages(total, reviews.PerPage)
	page, _ := strconv.Atoi(selected)
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	rows, err := repo.Page(ctx, page, reviews.PerPage)
	if err != nil {
		return nav.Render{}, err
	}

	album := make([]nav.Attachment, 0, len(rows))
	for i, rev := range rows {
		item := nav.Attachment{Kind: nav.AttachPhoto, FileID: rev.FileID}
		if rev.MediaType == reviews.MediaVideo {
			item.Kind = nav.AttachVideo
		}
		// Telegram shows the album caption from the first item only.
		if i == 0 {
			item.Caption = t.Swipe
			if rev.Caption != "" {
				item.Caption += "\n\n" + shorten(rev.Caption, captionLimit)
			}
		}
		album = append(album, item)
	}

	var pager []nav.Button
	if page > 1 {
		pager = append(pager, nav.Btn("⬅️", nav.Act(ActionReviewPage, strconv.Itoa(page-1))))
	}
	if page < pages {
		pager = append(pager, nav.Btn("➡️", nav.Act(ActionReviewPage, strconv.Itoa(page+1))))
	}
	keyboard := [][]nav.Button{}
	if len(pager) > 0 {
		keyboard = append(keyboard, pager)
	}
	keyboard = append(keyboard, back)

	return nav.Render{
		Text:     fmt.Sprintf(t.Pager, page, pages),
		Keyboard: keyboard,
		Album:    album,
	}, nil
}
