// Package addresses переносит почтовые адреса участников из Loops в таблицу заявок.
package addresses

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/loops"
)

// Значения поля airtable.FieldAutoAssigned.
const (
	AutoAssigned     = "Auto-assigned"
	ManuallyAssigned = "Manually assigned"
)

// RecordStore описывает операции с таблицей заявок.
type RecordStore interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	UpdateRecords(ctx context.Context, updates []airtable.Record) (int, error)
}

// ContactFinder ищет контакты Loops по адресу почты.
type ContactFinder interface {
	FindContacts(ctx context.Context, email string) ([]loops.Contact, error)
}

// Outcome описывает решение по одной записи.
type Outcome int

const (
	OutcomeNoAddress Outcome = iota
	OutcomeManual
	OutcomeAuto
)

// Result содержит итоги синхронизации.
type Result struct {
	Records      int
	Skipped      int
	LookupErrors int
	AutoAssigned int
	Manual       int
	NoAddress    int
	Updated      int
	Warnings     []string
}

// Run сопоставляет записи таблицы с контактами Loops и обновляет адреса.
// Запросы к Loops выполняются параллельно, не более concurrency одновременно;
// ошибка поиска пропускает запись.
func Run(ctx context.Context, store RecordStore, finder ContactFinder, concurrency int, logger *zap.Logger) (*Result, error) {
	records, err := store.List(ctx, airtable.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	res := &Result{Records: len(records)}

	contacts := make([][]loops.Contact, len(records))
	failed := make([]bool, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, r := range records {
		email := r.Email()
		if email == "" {
			continue
		}
		g.Go(func() error {
			found, err := finder.FindContacts(gctx, email)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("find loops contact", zap.String("email", email), zap.Error(err))
				failed[i] = true
				return nil
			}
			contacts[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var updates []airtable.Record
	for i, r := range records {
		email := r.Email()
		switch {
		case email == "":
			logger.Debug("skipping record without email", zap.String("record", r.ID))
			res.Skipped++
			continue
		case failed[i]:
			res.LookupErrors++
			continue
		}

		update, outcome := Plan(r, contacts[i])
		switch outcome {
		case OutcomeNoAddress:
			res.NoAddress++
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s (ID: %s) - no address in Airtable or Loops", email, r.ID))
			continue
		case OutcomeManual:
			res.Manual++
		case OutcomeAuto:
			res.AutoAssigned++
		}
		updates = append(updates, update)
	}

	if len(updates) == 0 {
		return res, nil
	}

	logger.Info("updating records", zap.Int("count", len(updates)))

	res.Updated, err = store.UpdateRecords(ctx, updates)
	if err != nil {
		return res, fmt.Errorf("update records: %w", err)
	}

	return res, nil
}

// Plan решает, что записать в запись таблицы по найденным контактам.
// Адрес из таблицы имеет приоритет: такая запись помечается как заполненная
// вручную и получает только дату рождения, если её не было.
func Plan(r airtable.Record, contacts []loops.Contact) (airtable.Record, Outcome) {
	var withAddress, withBirthday *loops.Contact
	for i := range contacts {
		if withAddress == nil && contacts[i].HasAddress() {
			withAddress = &contacts[i]
		}
		if withBirthday == nil && contacts[i].Birthday != "" {
			withBirthday = &contacts[i]
		}
	}

	if r.HasAddress() {
		fields := airtable.Fields{airtable.FieldAutoAssigned: ManuallyAssigned}

		birthday := ""
		if withAddress != nil {
			birthday = withAddress.Birthday
		} else if withBirthday != nil {
			birthday = withBirthday.Birthday
		}
		if birthday != "" && r.String(airtable.FieldBirthday) == "" {
			fields[airtable.FieldBirthday] = birthday
		}
		return airtable.Record{ID: r.ID, Fields: fields}, OutcomeManual
	}

	if withAddress == nil {
		return airtable.Record{}, OutcomeNoAddress
	}

	fields := airtable.Fields{
		airtable.FieldAutoAssigned: AutoAssigned,
	}
	setIfPresent(fields, airtable.FieldAddressLine1, withAddress.AddressLine1)
	setIfPresent(fields, airtable.FieldAddressLine2, withAddress.AddressLine2)
	setIfPresent(fields, airtable.FieldAddressCity, withAddress.AddressCity)
	setIfPresent(fields, airtable.FieldAddressState, withAddress.AddressState)
	setIfPresent(fields, airtable.FieldAddressZipCode, withAddress.AddressZipCode)
	setIfPresent(fields, airtable.FieldAddressCountry, withAddress.AddressCountry)
	setIfPresent(fields, airtable.FieldBirthday, withAddress.Birthday)

	return airtable.Record{ID: r.ID, Fields: fields}, OutcomeAuto
}

func setIfPresent(fields airtable.Fields, name, value string) {
	if value != "" {
		fields[name] = value
	}
}
