package ado

import "encoding/json"

type wiqlRequest struct {
	Query string `json:"query"`
}

type wiqlResponse struct {
	WorkItems []struct {
		ID int `json:"id"`
	} `json:"workItems"`
}

type batchRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields"`
}

type batchResponse struct {
	Value []workItemDTO `json:"value"`
}

type workItemDTO struct {
	ID     int            `json:"id"`
	Fields workItemFields `json:"fields"`
}

type workItemFields struct {
	ID           int             `json:"System.Id"`
	Title        string          `json:"System.Title"`
	State        string          `json:"System.State"`
	AssignedTo   json.RawMessage `json:"System.AssignedTo,omitempty"`
	WorkItemType string          `json:"System.WorkItemType"`
	ProductType  string          `json:"Custom.ProductType"`
	TargetDate   string          `json:"Microsoft.VSTS.Scheduling.TargetDate"`
}

// identityDTO is the shape Azure DevOps uses for person-valued fields.
type identityDTO struct {
	DisplayName string `json:"displayName"`
}

type revisionsResponse struct {
	Value []Revision `json:"value"`
}

// Revision is one entry in a work item's revision history.
type Revision struct {
	Rev    int            `json:"rev"`
	Fields RevisionFields `json:"fields"`
}

// RevisionFields carries the two revision fields the pipeline cares about.
type RevisionFields struct {
	State       string `json:"System.State"`
	ChangedDate string `json:"System.ChangedDate"`
}
