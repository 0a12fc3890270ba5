package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/lab"
)

type labRepository struct {
	db *DB
}

var _ lab.Repository = (*labRepository)(nil) // interface compliance check

func NewLabRepository(db *DB) *labRepository {
	return &labRepository{db: db}
}

// Labs

func (repo *labRepository) CreateLab(_ context.Context, lb lab.Lab) (lab.Lab, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.labs[lb.ID] = lb
	return lb, nil
}

func (repo *labRepository) GetLab(_ context.Context, id string) (lab.Lab, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lb, ok := repo.db.labs[id]; ok {
		return lb, nil
	}
	return lab.Lab{}, lab.ErrLabNotFound
}

func (repo *labRepository) QueryLabs(_ context.Context, filter *lab.QueryFilter, ordering []core.DBOrdering) ([]lab.Lab, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	labs := make([]lab.Lab, 0, len(repo.db.labs))
	for _, lb := range repo.db.labs {
		if filter != nil {
			if filter.Search != "" {
				s := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(lb.Title), s) && !strings.Contains(strings.ToLower(lb.Description), s) {
					continue
				}
			}
			if filter.CourseID != "" && lb.CourseID != filter.CourseID {
				continue
			}
			if filter.Status != "" && lb.Status != filter.Status {
				continue
			}
		}
		labs = append(labs, lb)
	}

	sort.SliceStable(labs, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := labField(labs[i], ord.Field), labField(labs[j], ord.Field)
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return labs[i].CreatedAt.After(labs[j].CreatedAt)
	})
	return labs, nil
}

func labField(lb lab.Lab, field string) string {
	switch field {
	case "title":
		return lb.Title
	case "difficulty":
		return lb.Difficulty
	case "status":
		return lb.Status
	case "created_at":
		return lb.CreatedAt.Format(time.RFC3339Nano)
	case "updated_at":
		return lb.UpdatedAt.Format(time.RFC3339Nano)
	}
	return ""
}

func (repo *labRepository) UpdateLab(_ context.Context, lb lab.Lab) (lab.Lab, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.labs[lb.ID]; !ok {
		return lab.Lab{}, lab.ErrLabNotFound
	}
	repo.db.labs[lb.ID] = lb
	return lb, nil
}

func (repo *labRepository) DeleteLab(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.labs[id]; !ok {
		return lab.ErrLabNotFound
	}
	delete(repo.db.labs, id)
	for k, d := range repo.db.devices {
		if d.LabID == id {
			delete(repo.db.devices, k)
		}
	}
	for k, c := range repo.db.connections {
		if c.LabID == id {
			delete(repo.db.connections, k)
		}
	}
	for k, s := range repo.db.sessions {
		if s.LabID == id {
			delete(repo.db.sessions, k)
		}
	}
	for k, q := range repo.db.questions {
		if q.LabID == id {
			delete(repo.db.questions, k)
		}
	}
	return nil
}

// Devices

func (repo *labRepository) CreateDevice(_ context.Context, dev lab.Device) (lab.Device, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.labs[dev.LabID]; !ok {
		return lab.Device{}, lab.ErrLabNotFound
	}
	repo.db.devices[dev.ID] = dev
	return dev, nil
}

func (repo *labRepository) GetDevice(_ context.Context, id string) (lab.Device, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if dev, ok := repo.db.devices[id]; ok {
		return dev, nil
	}
	return lab.Device{}, lab.ErrDeviceNotFound
}

func (repo *labRepository) QueryDevices(_ context.Context, labID string) ([]lab.Device, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	devices := make([]lab.Device, 0)
	for _, d := range repo.db.devices {
		if d.LabID == labID {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].CreatedAt.Equal(devices[j].CreatedAt) {
			return devices[i].ID < devices[j].ID
		}
		return devices[i].CreatedAt.Before(devices[j].CreatedAt)
	})
	return devices, nil
}

func (repo *labRepository) UpdateDevice(_ context.Context, dev lab.Device) (lab.Device, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.devices[dev.ID]; !ok {
		return lab.Device{}, lab.ErrDeviceNotFound
	}
	repo.db.devices[dev.ID] = dev
	return dev, nil
}

func (repo *labRepository) DeleteDevice(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.devices[id]; !ok {
		return lab.ErrDeviceNotFound
	}
	for k, c := range repo.db.connections {
		if c.Touches(id) {
			delete(repo.db.connections, k)
		}
	}
	delete(repo.db.devices, id)
	return nil
}

// Connections

func (repo *labRepository) CreateConnection(_ context.Context, conn lab.Connection) (lab.Connection, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.connections {
		if c.LabID == conn.LabID && c.Links(conn.SourceDeviceID, conn.TargetDeviceID) {
			return lab.Connection{}, lab.ErrConnectionExists
		}
	}
	repo.db.connections[conn.ID] = conn
	return conn, nil
}

func (repo *labRepository) GetConnection(_ context.Context, id string) (lab.Connection, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if conn, ok := repo.db.connections[id]; ok {
		return conn, nil
	}
	return lab.Connection{}, lab.ErrConnectionNotFound
}

func (repo *labRepository) FindConnection(_ context.Context, labID, a, b string) (lab.Connection, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.connections {
		if c.LabID == labID && c.Links(a, b) {
			return c, nil
		}
	}
	return lab.Connection{}, lab.ErrConnectionNotFound
}

func (repo *labRepository) sortedConnections(keep func(lab.Connection) bool) []lab.Connection {
	conns := make([]lab.Connection, 0)
	for _, c := range repo.db.connections {
		if keep(c) {
			conns = append(conns, c)
		}
	}
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].CreatedAt.Equal(conns[j].CreatedAt) {
			return conns[i].ID < conns[j].ID
		}
		return conns[i].CreatedAt.Before(conns[j].CreatedAt)
	})
	return conns
}

func (repo *labRepository) QueryConnections(_ context.Context, labID string) ([]lab.Connection, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.sortedConnections(func(c lab.Connection) bool { return c.LabID == labID }), nil
}

func (repo *labRepository) QueryDeviceConnections(_ context.Context, deviceID string) ([]lab.Connection, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.sortedConnections(func(c lab.Connection) bool { return c.Touches(deviceID) }), nil
}

func (repo *labRepository) UpdateConnectionStatus(
	_ context.Context,
	id string,
	status lab.ConnectionStatus,
	updatedAt time.Time,
) (lab.Connection, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	conn, ok := repo.db.connections[id]
	if !ok {
		return lab.Connection{}, lab.ErrConnectionNotFound
	}
	conn.Status = status
	conn.UpdatedAt = updatedAt
	repo.db.connections[id] = conn
	return conn, nil
}

func (repo *labRepository) DeleteConnection(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.connections[id]; !ok {
		return lab.ErrConnectionNotFound
	}
	delete(repo.db.connections, id)
	return nil
}

// Sessions

func (repo *labRepository) SaveSession(_ context.Context, sess lab.Session) (lab.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := sessionKey(sess.UserID, sess.LabID)
	if existing, ok := repo.db.sessions[key]; ok {
		sess.ID = existing.ID
	}
	repo.db.sessions[key] = sess
	return sess, nil
}

func (repo *labRepository) GetSession(_ context.Context, userID, labID string) (lab.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.sessions[sessionKey(userID, labID)]; ok {
		return sess, nil
	}
	return lab.Session{}, lab.ErrSessionNotFound
}
