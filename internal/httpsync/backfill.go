package httpsync

import (
	"context"
	"fmt"

	"github.com/arenalog/companion/internal/playerdata"
)

// Backfill asks the remote service which entities it already holds for the
// account and enqueues every locally extracted entity it is missing.
func (q *Queue) Backfill(ctx context.Context, arenaID string, ext *playerdata.Extracted) error {
	if ext == nil {
		return fmt.Errorf("nothing extracted")
	}
	ids, err := q.FetchSyncIDs(ctx, arenaID)
	if err != nil {
		return err
	}

	known := struct {
		matches, courses, drafts, economy, seasonal map[string]bool
	}{
		matches:  toSet(ids.Matches),
		courses:  toSet(ids.Courses),
		drafts:   toSet(ids.Drafts),
		economy:  toSet(ids.Economy),
		seasonal: toSet(ids.Seasonal),
	}

	for _, m := range ext.Matches {
		if !known.matches[m.ID] {
			q.Push(KindMatch, m)
		}
	}
	for _, e := range ext.Events {
		if !known.courses[e.ID] {
			q.Push(KindCourse, e)
		}
	}
	for _, d := range ext.Drafts {
		if !known.drafts[d.ID] {
			q.Push(KindDraft, d)
		}
	}
	for _, t := range ext.Economy {
		if !known.economy[t.ID] {
			q.Push(KindEconomy, t)
		}
	}
	for _, s := range ext.Seasonal {
		if !known.seasonal[s.ID] {
			q.Push(KindSeasonal, s)
		}
	}
	return nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
