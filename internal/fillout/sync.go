package fillout

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/validation"
)

// Marker отмечает записи, созданные импортом. Такие записи удаляются
// при следующем запуске и создаются заново.
const Marker = "[Auto-created by Fillout sync]"

// RecordStore описывает операции с таблицей заявок.
type RecordStore interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	UpdateRecord(ctx context.Context, id string, fields airtable.Fields) error
	CreateRecord(ctx context.Context, fields airtable.Fields) (string, error)
	DeleteRecord(ctx context.Context, id string) error
}

// Result содержит итоги импорта.
type Result struct {
	Submissions int
	Users       int
	Deleted     int
	Updated     int
	Created     int
	Failed      int
}

// Sync удаляет ранее созданные импортом записи, затем для каждого участника
// обновляет его ожидающую проверки запись или создаёт новую с маркером.
// Ошибки отдельных операций считаются и не прерывают импорт.
func Sync(ctx context.Context, store RecordStore, subs []Submission, logger *zap.Logger) (*Result, error) {
	records, err := store.List(ctx, airtable.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	res := &Result{Submissions: len(subs)}

	byEmail := make(map[string]airtable.Record)
	bySlackID := make(map[string]airtable.Record)

	for _, r := range records {
		if isAutoCreated(r) {
			if err := store.DeleteRecord(ctx, r.ID); err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				logger.Error("delete auto-created record", zap.String("record", r.ID), zap.Error(err))
				res.Failed++
				continue
			}
			res.Deleted++
			continue
		}
		if !isPending(r) {
			continue
		}
		if email := validation.NormalizeEmail(r.Email()); email != "" {
			byEmail[email] = r
		}
		if id := r.SlackID(); id != "" {
			bySlackID[id] = r
		}
	}

	groups := GroupSubmissions(subs)
	res.Users = len(groups)

	for _, g := range groups {
		fields := Merge(g.Submissions)
		email := validation.NormalizeEmail(fmt.Sprint(fields[airtable.FieldEmail]))
		slackID := fmt.Sprint(fields[airtable.FieldSlackID])

		existing, ok := byEmail[email]
		if !ok || email == "" {
			existing, ok = bySlackID[slackID]
			ok = ok && slackID != ""
		}

		if ok {
			if err := store.UpdateRecord(ctx, existing.ID, fields); err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				logger.Error("update record", zap.String("user", g.Key), zap.String("record", existing.ID), zap.Error(err))
				res.Failed++
				continue
			}
			logger.Info("record updated", zap.String("user", g.Key), zap.String("record", existing.ID),
				zap.Int("submissions", len(g.Submissions)))
			res.Updated++
			continue
		}

		label := email
		if label == "" {
			label = slackID
		}
		fields[airtable.FieldConvergeReview] = "Pending"
		fields[FieldFulfilled] = false
		fields[airtable.FieldProjectName] = label + " " + Marker

		id, err := store.CreateRecord(ctx, fields)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Error("create record", zap.String("user", g.Key), zap.Error(err))
			res.Failed++
			continue
		}
		logger.Info("record created", zap.String("user", g.Key), zap.String("record", id))
		res.Created++
	}

	return res, nil
}

func isAutoCreated(r airtable.Record) bool {
	return strings.Contains(r.String(airtable.FieldProjectName), Marker)
}

func isPending(r airtable.Record) bool {
	review := r.String(airtable.FieldConvergeReview)
	return review == "" || review == "Pending"
}
