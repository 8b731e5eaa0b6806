// Package backfill дозаполняет поля пользователей по данным таблицы заявок.
package backfill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

// UploadedStatus задаёт значение поля Status у заявок, выгруженных в общую базу.
const UploadedStatus = "Uploaded"

// RecordSource отдаёт записи таблицы заявок.
type RecordSource interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
}

// UserStore описывает операции с пользователями, нужные дозаполнению.
type UserStore interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserFields(ctx context.Context, slackID string, upd repository.UserFieldsUpdate) error
}

// Result содержит итоги дозаполнения.
type Result struct {
	Users          int
	Records        int
	CountryUpdates int
	YswsUpdates    int
	Errors         int
	Uploaded       int
	Unresolved     []string
}

// Run заполняет страну у пользователей без неё и синхронизирует признак
// выгрузки в общую базу. Ошибки обновления отдельных пользователей считаются,
// но не прерывают задачу.
func Run(ctx context.Context, records RecordSource, store UserStore, logger *zap.Logger) (*Result, error) {
	all, err := records.List(ctx, airtable.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	countries := make(map[string]string)
	uploaded := make(map[string]bool)
	for _, r := range all {
		id := r.SlackID()
		if id == "" {
			continue
		}
		if c := r.String(airtable.FieldCountry); c != "" {
			countries[id] = c
		}
		if r.String(airtable.FieldStatus) == UploadedStatus {
			uploaded[id] = true
		}
	}

	res := &Result{Users: len(users), Records: len(all), Uploaded: len(uploaded)}

	for _, u := range users {
		upd := plan(u, countries[u.SlackID], uploaded[u.SlackID])

		if raw := countries[u.SlackID]; !hasCountry(u) && raw != "" && upd.Country == nil {
			logger.Warn("could not normalize country", zap.String("user", u.SlackID), zap.String("country", raw))
			res.Unresolved = append(res.Unresolved, fmt.Sprintf("%s: %q", u.SlackID, raw))
			res.Errors++
		}

		if upd.Empty() {
			continue
		}

		if err := store.UpdateUserFields(ctx, u.SlackID, upd); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Error("update user", zap.String("user", u.SlackID), zap.Error(err))
			res.Errors++
			continue
		}

		if upd.Country != nil {
			res.CountryUpdates++
			logger.Info("country set", zap.String("user", u.SlackID), zap.String("country", *upd.Country))
		}
		if upd.YswsDBFulfilled != nil {
			res.YswsUpdates++
			logger.Info("ysws db fulfilled set", zap.String("user", u.SlackID), zap.Bool("value", *upd.YswsDBFulfilled))
		}
	}

	return res, nil
}

func plan(u model.User, rawCountry string, uploaded bool) repository.UserFieldsUpdate {
	var upd repository.UserFieldsUpdate

	if !hasCountry(u) && rawCountry != "" {
		if code := NormalizeCountry(rawCountry); code != "" {
			upd.Country = &code
		}
	}

	if u.YswsDBFulfilled != uploaded {
		upd.YswsDBFulfilled = &uploaded
	}

	return upd
}

func hasCountry(u model.User) bool {
	return u.Country != nil && *u.Country != ""
}
