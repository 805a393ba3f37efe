package rpc

import "github.com/mmynk/housemerge/internal/models"

// MergePeopleRequest names the placeholder to fold into a claimed person.
type MergePeopleRequest struct {
	GroupID        string `json:"groupId"`
	SourcePersonID string `json:"sourcePersonId"`
	TargetPersonID string `json:"targetPersonId"`
}

type MergePeopleResponse struct {
	Success bool `json:"success"`
}

type PreviewMergeRequest struct {
	GroupID        string `json:"groupId"`
	SourcePersonID string `json:"sourcePersonId"`
	TargetPersonID string `json:"targetPersonId"`
}

// PreviewMergeResponse carries the counts a merge would record, keyed like
// MergeAudit.MovedCounts.
type PreviewMergeResponse struct {
	Counts map[string]int `json:"counts"`
}

type ListMergeAuditsRequest struct {
	GroupID string `json:"groupId"`
}

type ListMergeAuditsResponse struct {
	Entries []*MergeAudit `json:"entries"`
}

// MergeAudit is the wire form of models.MergeAuditEntry.
type MergeAudit struct {
	ID             string         `json:"id"`
	GroupID        string         `json:"groupId"`
	SourcePersonID string         `json:"sourcePersonId"`
	TargetPersonID string         `json:"targetPersonId"`
	MergedBy       string         `json:"mergedBy"`
	MergedAt       int64          `json:"mergedAt"`
	MovedCounts    map[string]int `json:"movedCounts"`
}

// MergeAuditFromModel converts a stored audit entry for the wire.
func MergeAuditFromModel(e *models.MergeAuditEntry) *MergeAudit {
	return &MergeAudit{
		ID:             e.ID,
		GroupID:        e.GroupID,
		SourcePersonID: e.SourcePersonID,
		TargetPersonID: e.TargetPersonID,
		MergedBy:       e.MergedBy,
		MergedAt:       e.MergedAt,
		MovedCounts:    e.MovedCounts,
	}
}
