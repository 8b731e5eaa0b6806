package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/converge-shop/internal/model"
)

// ReplaceResult описывает итог замены начислений в журнале.
type ReplaceResult struct {
	CreatedUsers int
	Deleted      int64
	Inserted     int
}

// PayoutBalances возвращает агрегаты журнала для указанных пользователей.
// Защищёнными считаются начисления без memo и с memo, содержащим один из маркеров.
// Пользователи, которых нет в БД, в результат не попадают.
func (r *PostgresRepository) PayoutBalances(ctx context.Context, userIDs []string, markers []string) (map[string]model.LedgerBalance, error) {
	res := make(map[string]model.LedgerBalance, len(userIDs))
	if len(userIDs) == 0 {
		return res, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT u.slack_id,
		     COALESCE((SELECT SUM(p.tokens) FROM payouts p WHERE p.user_id = u.slack_id), 0),
		     COALESCE((SELECT SUM(p.tokens) FROM payouts p
		               WHERE p.user_id = u.slack_id AND (p.memo IS NULL OR p.memo ILIKE ANY($2::text[]))), 0),
		     COALESCE((SELECT SUM(o.price_at_order) FROM shop_orders o
		               WHERE o.user_id = u.slack_id AND o.status = ANY($3::text[])), 0)
		 FROM users u
		 WHERE u.slack_id = ANY($1::text[])`,
		userIDs, markerPatterns(markers), chargedStatuses(),
	)
	if err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b model.LedgerBalance
		if err := rows.Scan(&b.UserID, &b.Payouts, &b.Protected, &b.Spent); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		res[b.UserID] = b
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ReplacePayouts в одной транзакции создаёт недостающих пользователей,
// удаляет все незащищённые начисления и записывает новые.
// Любая ошибка откатывает транзакцию целиком.
func (r *PostgresRepository) ReplacePayouts(ctx context.Context, markers []string, payouts []model.NewPayout) (ReplaceResult, error) {
	var res ReplaceResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	seen := make(map[string]struct{}, len(payouts))
	for _, p := range payouts {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}

		tag, err := tx.Exec(ctx,
			`INSERT INTO users (slack_id, avatar_url) VALUES ($1, $2) ON CONFLICT (slack_id) DO NOTHING`,
			p.UserID, AvatarURL(p.UserID),
		)
		if err != nil {
			return res, fmt.Errorf("ensure user %s: %w", p.UserID, err)
		}
		if tag.RowsAffected() == 1 {
			res.CreatedUsers++
		}
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM payouts WHERE memo IS NOT NULL AND NOT (memo ILIKE ANY($1::text[]))`,
		markerPatterns(markers),
	)
	if err != nil {
		return res, fmt.Errorf("delete payouts: %w", err)
	}
	res.Deleted = tag.RowsAffected()

	rows := make([][]any, 0, len(payouts))
	for _, p := range payouts {
		if p.Tokens <= 0 {
			continue
		}
		rows = append(rows, []any{uuid.NewString(), p.Tokens, p.UserID, p.Memo})
	}

	if len(rows) > 0 {
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"payouts"},
			[]string{"id", "tokens", "user_id", "memo"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return res, fmt.Errorf("insert payouts: %w", err)
		}
		res.Inserted = int(n)
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit tx: %w", err)
	}

	return res, nil
}

// markerPatterns превращает маркеры в шаблоны ILIKE для поиска подстроки.
func markerPatterns(markers []string) []string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	patterns := make([]string, 0, len(markers))
	for _, m := range markers {
		if m == "" {
			continue
		}
		patterns = append(patterns, "%"+escaper.Replace(m)+"%")
	}
	return patterns
}
