package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/emberwatch/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

const alertColumns = `id, rule_id, service_name, env, tenant, severity, status,
	observed, threshold, opened_at, closed_at, note`

func (r *sqliteAlertRepo) FindByStatus(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM alerts WHERE status = ? ORDER BY opened_at DESC
	`, alertColumns)
	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query alerts by status: %w", err)
	}
	defer rows.Close()

	return r.scanAlerts(rows)
}

func (r *sqliteAlertRepo) FindLatestOpen(ctx context.Context, serviceName, ruleID string) (*models.Alert, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM alerts
		WHERE service_name = ? AND rule_id = ? AND status = ?
		ORDER BY opened_at DESC LIMIT 1
	`, alertColumns)

	alert, err := r.scanAlert(r.db.QueryRowContext(ctx, query, serviceName, ruleID, string(models.StatusOpen)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest open alert: %w", err)
	}
	return alert, nil
}

// OpenOrUpdate runs the check-then-write inside a single transaction so
// two concurrent evaluations cannot both insert an OPEN alert for the
// same (service_name, rule_id) pair.
func (r *sqliteAlertRepo) OpenOrUpdate(ctx context.Context, candidate *models.Alert) (*models.Alert, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		SELECT %s FROM alerts
		WHERE service_name = ? AND rule_id = ? AND status = ?
		ORDER BY opened_at DESC LIMIT 1
	`, alertColumns)

	existing, err := r.scanAlert(tx.QueryRowContext(ctx, query,
		candidate.ServiceName, candidate.RuleID, string(models.StatusOpen)))

	switch {
	case err == sql.ErrNoRows:
		created := *candidate
		if created.ID == "" {
			created.ID = uuid.New().String()
		}
		created.Status = models.StatusOpen
		if created.OpenedAt.IsZero() {
			created.OpenedAt = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO alerts (id, rule_id, service_name, env, tenant, severity,
				status, observed, threshold, opened_at, closed_at, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)
		`,
			created.ID, created.RuleID, created.ServiceName,
			nullString(string(created.Env)), nullString(created.Tenant),
			string(created.Severity), string(created.Status),
			created.Observed, created.Threshold, created.OpenedAt, created.Note,
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert alert: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit: %w", err)
		}
		return &created, true, nil

	case err != nil:
		return nil, false, fmt.Errorf("query open alert: %w", err)

	default:
		existing.Observed = candidate.Observed
		existing.Threshold = candidate.Threshold
		existing.Note = candidate.Note

		_, err = tx.ExecContext(ctx, `
			UPDATE alerts SET observed = ?, threshold = ?, note = ? WHERE id = ?
		`, existing.Observed, existing.Threshold, existing.Note, existing.ID)
		if err != nil {
			return nil, false, fmt.Errorf("update alert: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit: %w", err)
		}
		return existing, false, nil
	}
}

func (r *sqliteAlertRepo) Save(ctx context.Context, alert *models.Alert) error {
	var closedAt any
	if alert.ClosedAt != nil {
		closedAt = *alert.ClosedAt
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET rule_id = ?, service_name = ?, env = ?, tenant = ?,
			severity = ?, status = ?, observed = ?, threshold = ?,
			opened_at = ?, closed_at = ?, note = ?
		WHERE id = ?
	`,
		alert.RuleID, alert.ServiceName,
		nullString(string(alert.Env)), nullString(alert.Tenant),
		string(alert.Severity), string(alert.Status),
		alert.Observed, alert.Threshold, alert.OpenedAt, closedAt, alert.Note,
		alert.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", alert.ID)
	}
	return nil
}

func (r *sqliteAlertRepo) CountByStatus(ctx context.Context, status models.AlertStatus) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE status = ?", string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count alerts by status: %w", err)
	}
	return count, nil
}

func (r *sqliteAlertRepo) FindAll(ctx context.Context) ([]*models.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts ORDER BY opened_at DESC", alertColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	return r.scanAlerts(rows)
}

// scanner abstracts *sql.Row and *sql.Rows for scanAlert.
type scanner interface {
	Scan(dest ...any) error
}

func (r *sqliteAlertRepo) scanAlert(row scanner) (*models.Alert, error) {
	a := &models.Alert{}
	var env, tenant, note sql.NullString
	var closedAt sql.NullTime
	var severity, status string

	err := row.Scan(&a.ID, &a.RuleID, &a.ServiceName, &env, &tenant,
		&severity, &status, &a.Observed, &a.Threshold,
		&a.OpenedAt, &closedAt, &note)
	if err != nil {
		return nil, err
	}

	a.Env = models.Environment(env.String)
	a.Tenant = tenant.String
	a.Severity = models.AlertSeverity(severity)
	a.Status = models.AlertStatus(status)
	a.Note = note.String
	if closedAt.Valid {
		t := closedAt.Time
		a.ClosedAt = &t
	}
	return a, nil
}

func (r *sqliteAlertRepo) scanAlerts(rows *sql.Rows) ([]*models.Alert, error) {
	var alerts []*models.Alert
	for rows.Next() {
		a, err := r.scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
