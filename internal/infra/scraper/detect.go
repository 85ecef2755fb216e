package scraper

import (
	"fmt"

	"policy-watch/internal/domain/entity"
)

// DetectChanges classifies the delta between the previous scrape of a
// source and the current one. It is a pure function of its inputs.
//
// Classification:
//  1. nil previous (first-ever check): everything is new to the system, so
//     the change is content_modified with all current items as new.
//  2. Equal content hashes: no change.
//  3. Differing hashes: a URL-set diff decides between items_added,
//     items_removed, and content_modified (both sides changed, or the page
//     text changed with no item-level delta).
//
// When the caller reconstructs previous from stored state it carries only
// the hash, with a nil item list. Item-level classification then degrades
// to content_modified, trading precision against persisting full item
// history. A real prior scrape always has a non-nil (possibly empty)
// item slice, so nil reliably marks the reconstructed case.
func DetectChanges(previous, current *entity.ScraperResult) *entity.ChangeDetection {
	if previous == nil {
		return &entity.ChangeDetection{
			HasChanges: true,
			ChangeType: entity.ChangeContentModified,
			NewItems:   current.Items,
			NewHash:    current.ContentHash,
			Summary:    fmt.Sprintf("first check: %d items discovered", len(current.Items)),
		}
	}

	previousHash := previous.ContentHash

	if previousHash == current.ContentHash {
		return &entity.ChangeDetection{
			HasChanges:   false,
			ChangeType:   entity.ChangeNone,
			PreviousHash: &previousHash,
			NewHash:      current.ContentHash,
			Summary:      "no change",
		}
	}

	// A previous reconstructed from stored monitor state carries the hash
	// but a nil item list. With no prior items to diff against, every
	// current item would look added, so classification degrades to
	// content_modified instead of claiming items_added.
	if previous.Items == nil {
		return &entity.ChangeDetection{
			HasChanges:   true,
			ChangeType:   entity.ChangeContentModified,
			NewItems:     current.Items,
			PreviousHash: &previousHash,
			NewHash:      current.ContentHash,
			Summary:      fmt.Sprintf("content modified (%d items on page, prior items unknown)", len(current.Items)),
		}
	}

	previousURLs := urlSet(previous.Items)
	currentURLs := urlSet(current.Items)

	var newItems []entity.ScrapedItem
	for _, item := range current.Items {
		if !previousURLs[item.URL] {
			newItems = append(newItems, item)
		}
	}

	var removedItems []entity.ScrapedItem
	for _, item := range previous.Items {
		if !currentURLs[item.URL] {
			removedItems = append(removedItems, item)
		}
	}

	detection := &entity.ChangeDetection{
		HasChanges:   true,
		PreviousHash: &previousHash,
		NewHash:      current.ContentHash,
	}

	switch {
	case len(newItems) > 0 && len(removedItems) == 0:
		detection.ChangeType = entity.ChangeItemsAdded
		detection.NewItems = newItems
		detection.Summary = fmt.Sprintf("%d items added", len(newItems))
	case len(removedItems) > 0 && len(newItems) == 0:
		detection.ChangeType = entity.ChangeItemsRemoved
		detection.RemovedItems = removedItems
		detection.Summary = fmt.Sprintf("%d items removed", len(removedItems))
	default:
		// Both sides changed, or the hash moved with no item delta (text
		// edited in place, or prior items unavailable). Counts stay in the
		// summary so churn volume remains visible to operators.
		detection.ChangeType = entity.ChangeContentModified
		detection.NewItems = newItems
		detection.RemovedItems = removedItems
		detection.Summary = fmt.Sprintf("content modified (%d added, %d removed)",
			len(newItems), len(removedItems))
	}

	return detection
}

func urlSet(items []entity.ScrapedItem) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item.URL] = true
	}
	return set
}
