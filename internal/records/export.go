package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"terradjunto/internal/models"
	"terradjunto/internal/tabular"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func formatLocation(l *models.LatLng) string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("%.6f, %.6f", l[0], l[1])
}

func attachmentNames(as []models.Attachment) string {
	names := make([]string, len(as))
	for i, a := range as {
		names[i] = a.Name
	}
	return strings.Join(names, "; ")
}

var IncidentColumns = []tabular.Column[models.Incident]{
	{Header: "ID", Value: func(r models.Incident) string { return r.ID }},
	{Header: "Data", Value: func(r models.Incident) string { return formatTime(r.CreatedAt) }},
	{Header: "Título", Value: func(r models.Incident) string { return r.Title }},
	{Header: "Descrição", Value: func(r models.Incident) string { return r.Description }},
	{Header: "Nome", Value: func(r models.Incident) string {
		if r.Anonymous {
			return "Anónimo"
		}
		return r.UserName
	}},
	{Header: "Email", Value: func(r models.Incident) string { return r.Email }},
	{Header: "Morada", Value: func(r models.Incident) string { return r.Address }},
	{Header: "Localização", Value: func(r models.Incident) string { return formatLocation(r.Location) }},
	{Header: "Urgência", Value: func(r models.Incident) string { return r.Urgency }},
	{Header: "Estado", Value: func(r models.Incident) string { return string(r.Status) }},
	{Header: "Anexos", Value: func(r models.Incident) string { return attachmentNames(r.Attachments) }},
}

var WasteColumns = []tabular.Column[models.WasteRequest]{
	{Header: "ID", Value: func(r models.WasteRequest) string { return r.ID }},
	{Header: "Data", Value: func(r models.WasteRequest) string { return formatTime(r.CreatedAt) }},
	{Header: "Tipo", Value: func(r models.WasteRequest) string { return r.Kind }},
	{Header: "Subtipo", Value: func(r models.WasteRequest) string { return r.Subtype }},
	{Header: "Nome", Value: func(r models.WasteRequest) string { return r.Name }},
	{Header: "Telefone", Value: func(r models.WasteRequest) string { return r.Phone }},
	{Header: "Morada", Value: func(r models.WasteRequest) string { return r.Address }},
	{Header: "Localização", Value: func(r models.WasteRequest) string { return formatLocation(r.Location) }},
	{Header: "Itens", Value: func(r models.WasteRequest) string { return r.Items }},
	{Header: "Data preferida", Value: func(r models.WasteRequest) string { return r.PreferredDate }},
	{Header: "Estado", Value: func(r models.WasteRequest) string { return string(r.Status) }},
	{Header: "Anexos", Value: func(r models.WasteRequest) string { return attachmentNames(r.Attachments) }},
}

var ParticipationColumns = []tabular.Column[models.Participation]{
	{Header: "ID", Value: func(r models.Participation) string { return r.ID }},
	{Header: "Data", Value: func(r models.Participation) string { return formatTime(r.CreatedAt) }},
	{Header: "Tipo", Value: func(r models.Participation) string { return r.Type }},
	{Header: "Item", Value: func(r models.Participation) string { return r.ItemID }},
	{Header: "Título", Value: func(r models.Participation) string { return r.Title }},
	{Header: "Município", Value: func(r models.Participation) string { return r.Municipality }},
	{Header: "Nome", Value: func(r models.Participation) string { return r.UserName }},
	{Header: "Email", Value: func(r models.Participation) string { return r.Email }},
	{Header: "Classificação", Value: func(r models.Participation) string { return r.Classification }},
	{Header: "Conteúdo", Value: func(r models.Participation) string { return r.Content }},
	{Header: "Estado", Value: func(r models.Participation) string { return string(r.Status) }},
}

var ReportColumns = []tabular.Column[ReportRow]{
	{Header: "Coleção", Value: func(r ReportRow) string { return r.Collection }},
	{Header: "Estado", Value: func(r ReportRow) string { return r.Status }},
	{Header: "Total", Value: func(r ReportRow) string { return strconv.Itoa(r.Count) }},
}
