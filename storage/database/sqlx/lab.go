package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/lab"
	"github.com/trezcool/cyberlab/storage/database"
)

const (
	labColumns        = "id, title, description, instructions, course_id, difficulty, status, created_at, updated_at"
	deviceColumns     = "id, lab_id, name, type, ip, url, x, y, created_at"
	connectionColumns = "id, lab_id, source_device_id, target_device_id, connection_type, status, bandwidth, latency, created_at, updated_at"
	sessionColumns    = "id, user_id, lab_id, status, started_at, updated_at"
)

// lab columns that may be used for ordering
var labOrderingFields = map[string]bool{
	"title": true, "difficulty": true, "status": true, "created_at": true, "updated_at": true,
}

type labRepository struct {
	db *sqlx.DB
}

var _ lab.Repository = (*labRepository)(nil) // interface compliance check

func NewLabRepository(db *sql.DB) *labRepository {
	return &labRepository{db: sqlx.NewDb(db, "postgres")}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func checkAffected(res sql.Result, notFound error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Labs

func (repo labRepository) CreateLab(ctx context.Context, lb lab.Lab) (lab.Lab, error) {
	q := "INSERT INTO labs (" + labColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"
	_, err := repo.db.ExecContext(ctx, q,
		lb.ID, lb.Title, lb.Description, lb.Instructions, lb.CourseID, lb.Difficulty, lb.Status, lb.CreatedAt, lb.UpdatedAt)
	if err != nil {
		return lab.Lab{}, errors.Wrap(err, "inserting lab")
	}
	return lb, nil
}

func (repo labRepository) GetLab(ctx context.Context, id string) (lab.Lab, error) {
	var lb lab.Lab
	err := repo.db.GetContext(ctx, &lb, "SELECT "+labColumns+" FROM labs WHERE id = $1", id)
	if err != nil {
		return lab.Lab{}, trapNoRowsErr(err, lab.ErrLabNotFound, "selecting lab")
	}
	return lb, nil
}

func (repo labRepository) QueryLabs(ctx context.Context, filter *lab.QueryFilter, ordering []core.DBOrdering) ([]lab.Lab, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
		}
		if filter.CourseID != "" {
			where = append(where, "course_id = "+arg(filter.CourseID))
		}
		if filter.Status != "" {
			where = append(where, "status = "+arg(filter.Status))
		}
	}

	q := "SELECT " + labColumns + " FROM labs"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + orderBy(ordering, labOrderingFields, "created_at DESC")

	labs := make([]lab.Lab, 0)
	if err := repo.db.SelectContext(ctx, &labs, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting labs")
	}
	return labs, nil
}

func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		return fallback
	}
	return strings.Join(clauses, ", ")
}

func (repo labRepository) UpdateLab(ctx context.Context, lb lab.Lab) (lab.Lab, error) {
	q := `UPDATE labs SET title = $2, description = $3, instructions = $4, course_id = $5,
		difficulty = $6, status = $7, updated_at = $8 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		lb.ID, lb.Title, lb.Description, lb.Instructions, lb.CourseID, lb.Difficulty, lb.Status, lb.UpdatedAt)
	if err != nil {
		return lab.Lab{}, errors.Wrap(err, "updating lab")
	}
	if err = checkAffected(res, lab.ErrLabNotFound, "updating lab"); err != nil {
		return lab.Lab{}, err
	}
	return lb, nil
}

// DeleteLab relies on the ON DELETE CASCADE foreign keys for owned rows.
func (repo labRepository) DeleteLab(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM labs WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting lab")
	}
	return checkAffected(res, lab.ErrLabNotFound, "deleting lab")
}

// Devices

func (repo labRepository) CreateDevice(ctx context.Context, dev lab.Device) (lab.Device, error) {
	q := "INSERT INTO lab_devices (" + deviceColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"
	_, err := repo.db.ExecContext(ctx, q, dev.ID, dev.LabID, dev.Name, dev.Type, dev.IP, dev.URL, dev.X, dev.Y, dev.CreatedAt)
	if err != nil {
		return lab.Device{}, errors.Wrap(err, "inserting device")
	}
	return dev, nil
}

func (repo labRepository) GetDevice(ctx context.Context, id string) (lab.Device, error) {
	var dev lab.Device
	err := repo.db.GetContext(ctx, &dev, "SELECT "+deviceColumns+" FROM lab_devices WHERE id = $1", id)
	if err != nil {
		return lab.Device{}, trapNoRowsErr(err, lab.ErrDeviceNotFound, "selecting device")
	}
	return dev, nil
}

func (repo labRepository) QueryDevices(ctx context.Context, labID string) ([]lab.Device, error) {
	devices := make([]lab.Device, 0)
	q := "SELECT " + deviceColumns + " FROM lab_devices WHERE lab_id = $1 ORDER BY created_at, id"
	if err := repo.db.SelectContext(ctx, &devices, q, labID); err != nil {
		return nil, errors.Wrap(err, "selecting devices")
	}
	return devices, nil
}

func (repo labRepository) UpdateDevice(ctx context.Context, dev lab.Device) (lab.Device, error) {
	q := "UPDATE lab_devices SET name = $2, type = $3, ip = $4, url = $5, x = $6, y = $7 WHERE id = $1"
	res, err := repo.db.ExecContext(ctx, q, dev.ID, dev.Name, dev.Type, dev.IP, dev.URL, dev.X, dev.Y)
	if err != nil {
		return lab.Device{}, errors.Wrap(err, "updating device")
	}
	if err = checkAffected(res, lab.ErrDeviceNotFound, "updating device"); err != nil {
		return lab.Device{}, err
	}
	return dev, nil
}

func (repo labRepository) DeleteDevice(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = deleteDevice(ctx, tx, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing device deletion")
}

func deleteDevice(ctx context.Context, tx *sqlx.Tx, id string) error {
	q := "DELETE FROM lab_connections WHERE source_device_id = $1 OR target_device_id = $1"
	if _, err := tx.ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "deleting device connections")
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM lab_devices WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting device")
	}
	return checkAffected(res, lab.ErrDeviceNotFound, "deleting device")
}

// Connections

func (repo labRepository) CreateConnection(ctx context.Context, conn lab.Connection) (lab.Connection, error) {
	q := "INSERT INTO lab_connections (" + connectionColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"
	_, err := repo.db.ExecContext(ctx, q,
		conn.ID, conn.LabID, conn.SourceDeviceID, conn.TargetDeviceID, conn.Type, conn.Status,
		conn.Bandwidth, conn.Latency, conn.CreatedAt, conn.UpdatedAt)
	if err != nil {
		// lost the race against a concurrent insert of the same pair
		if database.IsUniqueViolation(err) {
			return lab.Connection{}, lab.ErrConnectionExists
		}
		return lab.Connection{}, errors.Wrap(err, "inserting connection")
	}
	return conn, nil
}

func (repo labRepository) GetConnection(ctx context.Context, id string) (lab.Connection, error) {
	var conn lab.Connection
	err := repo.db.GetContext(ctx, &conn, "SELECT "+connectionColumns+" FROM lab_connections WHERE id = $1", id)
	if err != nil {
		return lab.Connection{}, trapNoRowsErr(err, lab.ErrConnectionNotFound, "selecting connection")
	}
	return conn, nil
}

func (repo labRepository) FindConnection(ctx context.Context, labID, a, b string) (lab.Connection, error) {
	var conn lab.Connection
	q := "SELECT " + connectionColumns + ` FROM lab_connections WHERE lab_id = $1 AND (
		(source_device_id = $2 AND target_device_id = $3) OR (source_device_id = $3 AND target_device_id = $2)
	) LIMIT 1`
	if err := repo.db.GetContext(ctx, &conn, q, labID, a, b); err != nil {
		return lab.Connection{}, trapNoRowsErr(err, lab.ErrConnectionNotFound, "selecting connection")
	}
	return conn, nil
}

func (repo labRepository) QueryConnections(ctx context.Context, labID string) ([]lab.Connection, error) {
	conns := make([]lab.Connection, 0)
	q := "SELECT " + connectionColumns + " FROM lab_connections WHERE lab_id = $1 ORDER BY created_at, id"
	if err := repo.db.SelectContext(ctx, &conns, q, labID); err != nil {
		return nil, errors.Wrap(err, "selecting connections")
	}
	return conns, nil
}

func (repo labRepository) QueryDeviceConnections(ctx context.Context, deviceID string) ([]lab.Connection, error) {
	conns := make([]lab.Connection, 0)
	q := "SELECT " + connectionColumns + " FROM lab_connections WHERE source_device_id = $1 OR target_device_id = $1"
	if err := repo.db.SelectContext(ctx, &conns, q, deviceID); err != nil {
		return nil, errors.Wrap(err, "selecting device connections")
	}
	return conns, nil
}

func (repo labRepository) UpdateConnectionStatus(
	ctx context.Context,
	id string,
	status lab.ConnectionStatus,
	updatedAt time.Time,
) (lab.Connection, error) {
	var conn lab.Connection
	q := "UPDATE lab_connections SET status = $2, updated_at = $3 WHERE id = $1 RETURNING " + connectionColumns
	if err := repo.db.GetContext(ctx, &conn, q, id, status, updatedAt); err != nil {
		return lab.Connection{}, trapNoRowsErr(err, lab.ErrConnectionNotFound, "updating connection status")
	}
	return conn, nil
}

func (repo labRepository) DeleteConnection(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM lab_connections WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting connection")
	}
	return checkAffected(res, lab.ErrConnectionNotFound, "deleting connection")
}

// Sessions

func (repo labRepository) SaveSession(ctx context.Context, sess lab.Session) (lab.Session, error) {
	var saved lab.Session
	q := "INSERT INTO lab_sessions (" + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, lab_id) DO UPDATE SET status = EXCLUDED.status,
			started_at = EXCLUDED.started_at, updated_at = EXCLUDED.updated_at
		RETURNING ` + sessionColumns
	err := repo.db.GetContext(ctx, &saved, q, sess.ID, sess.UserID, sess.LabID, sess.Status, sess.StartedAt, sess.UpdatedAt)
	if err != nil {
		return lab.Session{}, errors.Wrap(err, "saving session")
	}
	return saved, nil
}

func (repo labRepository) GetSession(ctx context.Context, userID, labID string) (lab.Session, error) {
	var sess lab.Session
	q := "SELECT " + sessionColumns + " FROM lab_sessions WHERE user_id = $1 AND lab_id = $2"
	if err := repo.db.GetContext(ctx, &sess, q, userID, labID); err != nil {
		return lab.Session{}, trapNoRowsErr(err, lab.ErrSessionNotFound, "selecting session")
	}
	return sess, nil
}
