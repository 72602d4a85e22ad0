package handlers

import (
	"sponte/internal/store"
	"sponte/pkg/api"
)

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toLocationResponse(l *store.Location) api.LocationResponse {
	return api.LocationResponse{
		ID:              l.ID.String(),
		UserID:          l.UserID.String(),
		BusinessName:    l.BusinessName,
		DBAName:         l.DBAName,
		StreetAddress:   l.StreetAddress,
		City:            l.City,
		State:           l.State,
		ZipCode:         l.ZipCode,
		PhonePrimary:    l.PhonePrimary,
		PhoneSecondary:  l.PhoneSecondary,
		WebsiteURL:      l.WebsiteURL,
		CMSPlatform:     l.CMSPlatform,
		PrimaryCategory: l.PrimaryCategory,
		Services:        orEmpty(l.Services),
		BrandTone:       l.BrandTone,
		BlogCadence:     l.BlogCadence,
		GBPCadence:      l.GBPCadence,
		ForbiddenWords:  orEmpty(l.ForbiddenWords),
		ForbiddenTopics: orEmpty(l.ForbiddenTopics),
		PrimaryGoal:     l.PrimaryGoal,
		ReportFrequency: l.ReportFrequency,
		ReportEmails:    orEmpty(l.ReportEmails),
		GBPLocationName: l.GBPLocationName,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func toAgentConfigResponse(c *store.AgentConfig) api.AgentConfigResponse {
	data := c.ConfigData
	if data == nil {
		data = map[string]any{}
	}
	return api.AgentConfigResponse{
		ID:           c.ID.String(),
		LocationID:   c.LocationID.String(),
		AgentType:    string(c.AgentType),
		AutonomyMode: string(c.AutonomyMode),
		IsActive:     c.IsActive,
		ConfigData:   data,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toTaskResponse(t *store.Task) api.TaskResponse {
	return api.TaskResponse{
		ID:               t.ID.String(),
		LocationID:       t.LocationID.String(),
		AgentType:        string(t.AgentType),
		TaskType:         string(t.TaskType),
		Status:           string(t.Status),
		ScheduledFor:     t.ScheduledFor,
		GeneratedContent: t.GeneratedContent,
		Metadata:         t.Metadata,
		ErrorMessage:     t.ErrorMessage,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		CompletedAt:      t.CompletedAt,
	}
}

func toOutputResponse(o *store.Output) api.OutputResponse {
	resp := api.OutputResponse{
		ID:             o.ID.String(),
		TaskID:         o.TaskID.String(),
		LocationID:     o.LocationID.String(),
		OutputType:     string(o.OutputType),
		Status:         string(o.Status),
		Title:          o.Title,
		Content:        o.Content,
		PlatformPostID: o.PlatformPostID,
		PlatformURL:    o.PlatformURL,
		Metadata:       o.Metadata,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		PostedAt:       o.PostedAt,
	}
	if o.CallToAction != nil {
		cta := string(*o.CallToAction)
		resp.CallToAction = &cta
	}
	return resp
}

func toReportResponse(r *store.Report) api.ReportResponse {
	return api.ReportResponse{
		ID:              r.ID.String(),
		LocationID:      r.LocationID.String(),
		ReportType:      string(r.ReportType),
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		Data:            r.Data,
		EmailRecipients: orEmpty(r.EmailRecipients),
		EmailSentAt:     r.EmailSentAt,
		CreatedAt:       r.CreatedAt,
	}
}
