package ado

import (
	"encoding/json"
	"slices"
)

// Tracked workflow states whose first entry date the pipeline records.
const (
	StateDoing = "Doing"
	StateDone  = "Done"
)

// TransitionDates walks a work item's revision history and returns the first
// date the item entered the Doing and Done states, as date-only strings
// (empty when the state never occurs). Revisions are sorted by revision
// number first, so the result does not depend on API response ordering.
// A revision without a changed date still claims a state's first occurrence,
// leaving that date absent.
func TransitionDates(revs []Revision) (doing, done string) {
	ordered := slices.Clone(revs)
	slices.SortFunc(ordered, func(a, b Revision) int { return a.Rev - b.Rev })

	for _, rev := range ordered {
		date := rev.Fields.ChangedDate
		if len(date) > 10 {
			date = date[:10]
		}
		if rev.Fields.State == StateDoing && doing == "" {
			doing = date
		}
		if rev.Fields.State == StateDone && done == "" {
			done = date
		}
	}
	return doing, done
}

// mapWorkItem transforms a batch-response DTO into the domain WorkItem.
func mapWorkItem(dto workItemDTO) WorkItem {
	item := WorkItem{
		ID:          dto.Fields.ID,
		Title:       dto.Fields.Title,
		State:       dto.Fields.State,
		Type:        dto.Fields.WorkItemType,
		ProductType: dto.Fields.ProductType,
		TargetDate:  dto.Fields.TargetDate,
	}
	if item.ID == 0 {
		item.ID = dto.ID
	}
	if len(item.TargetDate) > 10 {
		item.TargetDate = item.TargetDate[:10]
	}

	// AssignedTo is usually an identity object but has been observed as
	// other shapes on migrated items; anything that does not decode renders
	// as an empty assignee.
	if len(dto.Fields.AssignedTo) > 0 {
		var identity identityDTO
		if err := json.Unmarshal(dto.Fields.AssignedTo, &identity); err == nil {
			item.AssignedTo = identity.DisplayName
		}
	}
	return item
}
