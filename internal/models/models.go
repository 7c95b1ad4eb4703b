package models

import (
	"encoding/json"
	"time"
)

// LatLng is a [lat, lng] pair as sent by the map widgets.
type LatLng [2]float64

// Attachment is the name and size of an uploaded file. The bytes are never kept.
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// IncidentStatus is the workflow state of an incident report.
type IncidentStatus string

const (
	IncidentNew          IncidentStatus = "novo"
	IncidentInAnalysis   IncidentStatus = "em-analise"
	IncidentForwarded    IncidentStatus = "encaminhado"
	IncidentInResolution IncidentStatus = "em-resolucao"
	IncidentResolved     IncidentStatus = "resolvido"
	IncidentRejected     IncidentStatus = "rejeitado"
)

// IncidentStatuses lists the selectable states in workflow order.
var IncidentStatuses = []IncidentStatus{
	IncidentNew, IncidentInAnalysis, IncidentForwarded, IncidentInResolution, IncidentResolved, IncidentRejected,
}

// Incident is a citizen-reported problem (registo de ocorrência).
// UserName and Email are empty for anonymous reports.
type Incident struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category,omitempty"`
	Anonymous   bool           `json:"anonymous"`
	UserName    string         `json:"userName,omitempty"`
	Email       string         `json:"email,omitempty"`
	Location    *LatLng        `json:"location,omitempty"`
	Address     string         `json:"address"`
	Urgency     string         `json:"urgency"` // baixa, media, alta
	Attachments []Attachment   `json:"attachments"`
	Status      IncidentStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (r Incident) RecordID() string { return r.ID }

// Upgrade fills fields missing from older stored shapes.
func (r *Incident) Upgrade() {
	if r.Status == "" {
		r.Status = IncidentNew
	}
	if r.Attachments == nil {
		r.Attachments = []Attachment{}
	}
}

// WasteStatus is the workflow state of a waste collection request.
type WasteStatus string

const (
	WasteSent       WasteStatus = "enviado"
	WasteInAnalysis WasteStatus = "em-analise"
	WasteScheduled  WasteStatus = "agendado"
	WasteInService  WasteStatus = "em-servico"
	WasteResolved   WasteStatus = "resolvido"
	WasteRejected   WasteStatus = "rejeitado"
)

// Waste request kinds.
const (
	WasteKindBulky   = "bulky"
	WasteKindIllegal = "illegal"
)

var WasteStatuses = []WasteStatus{
	WasteSent, WasteInAnalysis, WasteScheduled, WasteInService, WasteResolved, WasteRejected,
}

// WasteRequest covers both bulky-item pickups and illegal dumping reports;
// Kind tells them apart.
type WasteRequest struct {
	ID            string       `json:"id"`
	Kind          string       `json:"kind"`              // bulky, illegal
	Subtype       string       `json:"subtype,omitempty"` // residential, construction
	Name          string       `json:"name"`
	Phone         string       `json:"phone"`
	Email         string       `json:"email,omitempty"`
	Address       string       `json:"address"`
	Location      *LatLng      `json:"location,omitempty"`
	Items         string       `json:"items"`
	Description   string       `json:"description,omitempty"`
	PreferredDate string       `json:"preferredDate,omitempty"`
	Attachments   []Attachment `json:"attachments"`
	Status        WasteStatus  `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func (r WasteRequest) RecordID() string { return r.ID }

func (r *WasteRequest) Upgrade() {
	if r.Status == "" {
		r.Status = WasteSent
	}
	if r.Kind == "" {
		r.Kind = WasteKindBulky
	}
	if r.Attachments == nil {
		r.Attachments = []Attachment{}
	}
}

// ParticipationStatus is the moderation state of a public comment.
type ParticipationStatus string

const (
	ParticipationSent       ParticipationStatus = "enviado"
	ParticipationInAnalysis ParticipationStatus = "em-analise"
	ParticipationApproved   ParticipationStatus = "aprovado"
	ParticipationRejected   ParticipationStatus = "rejeitado"
	ParticipationPublished  ParticipationStatus = "publicado"
)

var ParticipationStatuses = []ParticipationStatus{
	ParticipationSent, ParticipationInAnalysis, ParticipationApproved, ParticipationRejected, ParticipationPublished,
}

// Classifications a citizen can attach to a participation comment.
var Classifications = []string{"concordo", "discordo", "proposta-coerente", "reclamacao", "sugestao"}

// Participation is a comment on a public project or program.
// ItemID is informational; nothing checks that the item exists.
type Participation struct {
	ID             string              `json:"id"`
	Type           string              `json:"type"` // project, program
	ItemID         string              `json:"itemId"`
	Title          string              `json:"title"`
	Municipality   string              `json:"municipality"`
	UserName       string              `json:"userName"`
	Email          string              `json:"email"`
	Classification string              `json:"classification"`
	Content        string              `json:"content"`
	Attachments    []Attachment        `json:"attachments"`
	Status         ParticipationStatus `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
}

func (r Participation) RecordID() string { return r.ID }

func (r *Participation) Upgrade() {
	if r.Status == "" {
		r.Status = ParticipationSent
	}
	if r.Attachments == nil {
		r.Attachments = []Attachment{}
	}
}

// LegislationCategory groups legislation documents.
const (
	CategoryPlanning = "ordenamento"
	CategoryWaste    = "residuos"
)

// LegislationFile is an admin-added legislation entry. Only file metadata is kept.
type LegislationFile struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Reference   string      `json:"reference"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Tags        []string    `json:"tags"`
	FullText    string      `json:"fullText"`
	File        *Attachment `json:"file,omitempty"`
	Custom      bool        `json:"custom"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func (r LegislationFile) RecordID() string { return r.ID }

func (r *LegislationFile) Upgrade() {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	r.Custom = true
}

// LegislationPDF is an entry of the legacy PDF uploader.
// URL points at the archived object when object storage is configured.
type LegislationPDF struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	URL         string    `json:"url,omitempty"`
	ObjectKey   string    `json:"objectKey,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

func (r LegislationPDF) RecordID() string { return r.ID }

func (r *LegislationPDF) Upgrade() {}

// Dataset types.
const (
	DatasetGeoJSON    = "geojson"
	DatasetKML        = "kml"
	DatasetCSV        = "csv"
	DatasetShapefile  = "shapefile"
	DatasetGeoPackage = "geopackage"
	DatasetJSON       = "json"
)

// Dataset scopes.
const (
	ScopeHeader      = "header"
	ScopeParticipate = "participate"
)

// DatasetMeta describes the uploaded source file.
type DatasetMeta struct {
	Size         int64  `json:"size"`
	OriginalName string `json:"originalName"`
	ObjectKey    string `json:"objectKey,omitempty"`
}

// Dataset is an admin-uploaded map layer. Features holds GeoJSON and is
// absent for formats that are kept as metadata only.
type Dataset struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
	Active    bool            `json:"active"`
	Scope     string          `json:"scope"`
	Features  json.RawMessage `json:"features,omitempty"`
	Meta      DatasetMeta     `json:"meta"`
}

func (d Dataset) RecordID() string { return d.ID }

// Upgrade defaults the scope of datasets stored before scopes existed.
func (d *Dataset) Upgrade() {
	if d.Scope == "" {
		d.Scope = ScopeHeader
	}
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// StoredUser is an account as persisted under the users slot.
type StoredUser struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	NIF          string    `json:"nif"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u StoredUser) RecordID() string { return u.Email }

func (u *StoredUser) Upgrade() {
	if u.Role == "" {
		u.Role = RoleUser
	}
}

// Public strips the credential.
func (u StoredUser) Public() AuthUser {
	return AuthUser{Name: u.Name, Email: u.Email, NIF: u.NIF, Role: u.Role}
}

// AuthUser is the session copy of a user, without password.
type AuthUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	NIF   string `json:"nif"`
	Role  string `json:"role"`
}

func (u AuthUser) IsAdmin() bool { return u.Role == RoleAdmin }

// ChatMessage is one line of the virtual assistant transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user, assistant
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m ChatMessage) RecordID() string { return m.ID }

func (m *ChatMessage) Upgrade() {}
