package domain

import (
	"fmt"
	"time"
)

// PublicationType distinguishes the three kinds of paid posts.
type PublicationType string

const (
	TypeAdvertisement PublicationType = "advertisement"
	TypeJobOffer      PublicationType = "job_offer"
	TypeJobSearch     PublicationType = "job_search"
)

// IsJob reports whether the publication is priced as a job posting.
func (t PublicationType) IsJob() bool {
	return t == TypeJobOffer || t == TypeJobSearch
}

// FirmType is the legal form the post is placed under.
type FirmType string

const (
	FirmIP       FirmType = "ИП"
	FirmPhysical FirmType = "ФИЗ ЛИЦО"
	FirmLegal    FirmType = "ЮР ЛИЦО"
)

// PublicationStatus values; transitions are monotonic and never regress.
type PublicationStatus string

const (
	StatusDraft     PublicationStatus = "draft"
	StatusScheduled PublicationStatus = "scheduled"
	StatusPublished PublicationStatus = "published"
	StatusFailed    PublicationStatus = "failed"
)

// Publication is the immutable record of a composed post.
type Publication struct {
	ID          int64
	UserID      int64
	Type        PublicationType
	FirmType    FirmType
	FirmName    string
	Text        string
	Cost        Kopecks
	Status      PublicationStatus
	MessageID   int
	CreatedAt   time.Time
	PublishedAt *time.Time
}

const promoFooter = "Хочешь тоже разместить свое объявление или рекламу в группу?\nПиши @RABOTA100_150_BOT"

// Draft holds the post content collected step by step during composition.
// Which fields are filled depends on Type; Render only reads the fields
// valid for the chosen type.
type Draft struct {
	Type           PublicationType `json:"type"`
	FirmType       FirmType        `json:"firm_type,omitempty"`
	FirmName       string          `json:"firm_name,omitempty"`
	AdText         string          `json:"ad_text,omitempty"`
	JobTitle       string          `json:"job_title,omitempty"`
	WorkerCount    string          `json:"worker_count,omitempty"`
	WorkPeriod     string          `json:"work_period,omitempty"`
	WorkConditions string          `json:"work_conditions,omitempty"`
	Requirements   string          `json:"requirements,omitempty"`
	Salary         string          `json:"salary,omitempty"`
	Contacts       string          `json:"contacts,omitempty"`
}

// Render produces the final feed text for the draft.
func (d Draft) Render() string {
	switch d.Type {
	case TypeJobOffer:
		return fmt.Sprintf(`💼 %s "%s"

🎯 Вакансия: %s
👥 Количество сотрудников: %s
📅 Период работы: %s
🏢 Условия: %s
📋 Требования: %s
💰 Зарплата: %s

📞 Контакты: %s

%s`, d.FirmType, d.FirmName, d.JobTitle, d.WorkerCount, d.WorkPeriod, d.WorkConditions, d.Requirements, d.Salary, d.Contacts, promoFooter)

	case TypeJobSearch:
		return fmt.Sprintf(`🔍 %s "%s"

💼 Ищу работу: %s
📅 Период: %s
🏢 Предпочитаемые условия: %s
📋 Требования к работодателю: %s
💰 Желаемая зарплата: %s

📞 Контакты: %s

%s`, d.FirmType, d.FirmName, d.JobTitle, d.WorkPeriod, d.WorkConditions, d.Requirements, d.Salary, d.Contacts, promoFooter)

	default:
		return fmt.Sprintf(`📢 %s "%s"

%s

📞 Контакты: %s

%s`, d.FirmType, d.FirmName, d.AdText, d.Contacts, promoFooter)
	}
}

// ImagePath returns the feed image attached to posts of the given type.
func ImagePath(t PublicationType) string {
	switch t {
	case TypeJobOffer:
		return "picture/gotovoe_poisk_rabotnikov.jpg"
	case TypeJobSearch:
		return "picture/gotovoe_poisk_vakansiy.jpg"
	default:
		return "picture/reklama.jpg"
	}
}
