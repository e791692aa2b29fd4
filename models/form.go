package models

import (
	"time"
)

// Form is a submission target. OrgID is nil for personal forms, which have no
// organization and therefore never inherit organization integration defaults.
type Form struct {
	ID                 string    `db:"id"                   json:"id"`
	OrgID              *OrgID    `db:"organization_id"      json:"organization_id,omitempty"`
	Name               string    `db:"name"                 json:"name"`
	Slug               string    `db:"slug"                 json:"slug"`
	SubmitHash         string    `db:"submit_hash"          json:"submit_hash"`
	Active             bool      `db:"active"               json:"active"`
	UseOrgIntegrations bool      `db:"use_org_integrations" json:"use_org_integrations"`
	CreatedAt          time.Time `db:"created_at"           json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"           json:"updated_at"`
}
