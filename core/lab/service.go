package lab

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cyberlab/core"
)

type (
	Repository interface {
		CreateLab(ctx context.Context, lb Lab) (Lab, error)
		GetLab(ctx context.Context, id string) (Lab, error)
		QueryLabs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lab, error)
		UpdateLab(ctx context.Context, lb Lab) (Lab, error)
		// DeleteLab removes the lab with everything it owns.
		DeleteLab(ctx context.Context, id string) error

		CreateDevice(ctx context.Context, dev Device) (Device, error)
		GetDevice(ctx context.Context, id string) (Device, error)
		QueryDevices(ctx context.Context, labID string) ([]Device, error)
		UpdateDevice(ctx context.Context, dev Device) (Device, error)
		// DeleteDevice removes the device and every connection touching it, atomically.
		DeleteDevice(ctx context.Context, id string) error

		// CreateConnection fails with ErrConnectionExists if the pair is already linked (either direction).
		CreateConnection(ctx context.Context, conn Connection) (Connection, error)
		GetConnection(ctx context.Context, id string) (Connection, error)
		// FindConnection looks up the connection linking a and b, in either direction.
		FindConnection(ctx context.Context, labID, a, b string) (Connection, error)
		QueryConnections(ctx context.Context, labID string) ([]Connection, error)
		QueryDeviceConnections(ctx context.Context, deviceID string) ([]Connection, error)
		UpdateConnectionStatus(ctx context.Context, id string, status ConnectionStatus, updatedAt time.Time) (Connection, error)
		DeleteConnection(ctx context.Context, id string) error

		// SaveSession inserts the session or updates the user's existing session for the lab.
		SaveSession(ctx context.Context, sess Session) (Session, error)
		GetSession(ctx context.Context, userID, labID string) (Session, error)
	}

	// Recorder receives topology events (metrics).
	Recorder interface {
		RecordConnectionOp(op string)
		RecordConnectAttempt(outcome string)
	}

	ServiceInterface interface {
		CreateLab(ctx context.Context, nl NewLab) (Lab, error)
		GetLab(ctx context.Context, id string) (Lab, error)
		QueryLabs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lab, error)
		UpdateLab(ctx context.Context, id string, ul UpdateLab) (Lab, error)
		DeleteLab(ctx context.Context, id string) error
		GetTopology(ctx context.Context, labID string) (Topology, error)

		CreateDevice(ctx context.Context, labID string, nd NewDevice) (Device, error)
		GetDevice(ctx context.Context, id string) (Device, error)
		UpdateDevice(ctx context.Context, id string, ud UpdateDevice) (Device, error)
		MoveDevice(ctx context.Context, id string, md MoveDevice) (Device, error)
		DeleteDevice(ctx context.Context, id string) error

		AddConnection(ctx context.Context, labID string, nc NewConnection, initial ConnectionStatus) (Connection, error)
		ToggleConnectionStatus(ctx context.Context, id string) (Connection, error)
		DeleteConnection(ctx context.Context, id string) error

		StartSession(ctx context.Context, userID, labID string) (Session, error)
		StopSession(ctx context.Context, userID, labID string) (Session, error)
		GetSession(ctx context.Context, userID, labID string) (Session, error)
		ConnectToDevice(ctx context.Context, userID, deviceID string) (ConnectTarget, error)
	}

	Service struct {
		repo     Repository
		layout   core.LayoutConfig
		logger   core.Logger
		recorder Recorder
	}
)

var _ ServiceInterface = (*Service)(nil)

// connection ops & connect outcomes, as recorded
const (
	OpCreate = "create"
	OpToggle = "toggle"
	OpDelete = "delete"

	OutcomeAllowed     = "allowed"
	OutcomeNoSession   = "no_session"
	OutcomeUnreachable = "unreachable"
	OutcomeNoURL       = "no_url"
)

func NewService(repo Repository, logger core.Logger, conf *core.Config, recorder ...Recorder) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	svc := &Service{
		repo:     repo,
		layout:   conf.Layout,
		logger:   logger,
		recorder: nopRecorder{},
	}
	if len(recorder) > 0 && recorder[0] != nil {
		svc.recorder = recorder[0]
	}
	return svc
}

type nopRecorder struct{}

func (nopRecorder) RecordConnectionOp(string)   {}
func (nopRecorder) RecordConnectAttempt(string) {}

// Labs

func (svc *Service) CreateLab(ctx context.Context, nl NewLab) (Lab, error) {
	now := time.Now().UTC()
	status := nl.Status
	if status == "" {
		status = "draft"
	}
	lb := Lab{
		ID:           uuid.New().String(),
		Title:        nl.Title,
		Description:  nl.Description,
		Instructions: nl.Instructions,
		CourseID:     nl.CourseID,
		Difficulty:   nl.Difficulty,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	lb, err := svc.repo.CreateLab(ctx, lb)
	return lb, errors.Wrap(err, "creating lab")
}

func (svc *Service) GetLab(ctx context.Context, id string) (Lab, error) {
	return svc.repo.GetLab(ctx, id)
}

func (svc *Service) QueryLabs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lab, error) {
	return svc.repo.QueryLabs(ctx, filter, ordering)
}

func (svc *Service) UpdateLab(ctx context.Context, id string, ul UpdateLab) (Lab, error) {
	lb, err := svc.repo.GetLab(ctx, id)
	if err != nil {
		return Lab{}, err
	}
	if ul.Title != nil {
		lb.Title = core.CleanString(*ul.Title)
	}
	if ul.Description != nil {
		lb.Description = *ul.Description
	}
	if ul.Instructions != nil {
		lb.Instructions = *ul.Instructions
	}
	if ul.CourseID != nil {
		lb.CourseID = core.CleanString(*ul.CourseID)
	}
	if ul.Difficulty != nil {
		lb.Difficulty = core.CleanString(*ul.Difficulty, true /* lower */)
	}
	if ul.Status != nil {
		lb.Status = core.CleanString(*ul.Status, true /* lower */)
	}
	lb.UpdatedAt = time.Now().UTC()

	lb, err = svc.repo.UpdateLab(ctx, lb)
	return lb, errors.Wrap(err, "updating lab")
}

func (svc *Service) DeleteLab(ctx context.Context, id string) error {
	return svc.repo.DeleteLab(ctx, id)
}

// GetTopology loads the lab diagram. Devices without a stored position get a grid slot,
// which is never written back.
func (svc *Service) GetTopology(ctx context.Context, labID string) (Topology, error) {
	lb, err := svc.repo.GetLab(ctx, labID)
	if err != nil {
		return Topology{}, err
	}
	devices, err := svc.repo.QueryDevices(ctx, labID)
	if err != nil {
		return Topology{}, errors.Wrap(err, "querying devices")
	}
	conns, err := svc.repo.QueryConnections(ctx, labID)
	if err != nil {
		return Topology{}, errors.Wrap(err, "querying connections")
	}
	if devices == nil {
		devices = []Device{}
	}
	if conns == nil {
		conns = []Connection{}
	}
	return Topology{
		Lab:         lb,
		Devices:     AssignDefaultPositions(devices, svc.layout),
		Connections: conns,
	}, nil
}

// Devices

func (svc *Service) CreateDevice(ctx context.Context, labID string, nd NewDevice) (Device, error) {
	if _, err := svc.repo.GetLab(ctx, labID); err != nil {
		return Device{}, err
	}
	dev := Device{
		ID:        uuid.New().String(),
		LabID:     labID,
		Name:      nd.Name,
		Type:      nd.Type,
		IP:        nd.IP,
		URL:       null.NewString(nd.URL, nd.URL != ""),
		X:         null.IntFromPtr(nd.X),
		Y:         null.IntFromPtr(nd.Y),
		CreatedAt: time.Now().UTC(),
	}
	dev, err := svc.repo.CreateDevice(ctx, dev)
	return dev, errors.Wrap(err, "creating device")
}

func (svc *Service) GetDevice(ctx context.Context, id string) (Device, error) {
	return svc.repo.GetDevice(ctx, id)
}

func (svc *Service) UpdateDevice(ctx context.Context, id string, ud UpdateDevice) (Device, error) {
	dev, err := svc.repo.GetDevice(ctx, id)
	if err != nil {
		return Device{}, err
	}
	if ud.Name != nil {
		dev.Name = core.CleanString(*ud.Name)
	}
	if ud.Type != nil {
		dev.Type = *ud.Type
	}
	if ud.IP != nil {
		dev.IP = core.CleanString(*ud.IP)
	}
	if ud.URL != nil {
		dev.URL = null.NewString(*ud.URL, *ud.URL != "")
	}
	if ud.X != nil {
		dev.X = null.IntFrom(*ud.X)
	}
	if ud.Y != nil {
		dev.Y = null.IntFrom(*ud.Y)
	}

	dev, err = svc.repo.UpdateDevice(ctx, dev)
	return dev, errors.Wrap(err, "updating device")
}

func (svc *Service) MoveDevice(ctx context.Context, id string, md MoveDevice) (Device, error) {
	return svc.UpdateDevice(ctx, id, UpdateDevice{X: md.X, Y: md.Y})
}

// DeleteDevice removes the device together with its connections.
func (svc *Service) DeleteDevice(ctx context.Context, id string) error {
	return svc.repo.DeleteDevice(ctx, id)
}

// Connections

// AddConnection is the only way connections get created. It rejects self-loops,
// endpoints outside the lab and pairs that are already linked (in either direction).
// Bandwidth and latency are taken from the connection type once, here.
func (svc *Service) AddConnection(ctx context.Context, labID string, nc NewConnection, initial ConnectionStatus) (Connection, error) {
	conn, err := svc.buildConnection(ctx, labID, nc, initial)
	if err != nil {
		return Connection{}, err
	}

	conn, err = svc.repo.CreateConnection(ctx, conn)
	if err != nil {
		if errors.Cause(err) == ErrConnectionExists {
			return Connection{}, ErrConnectionExists
		}
		return Connection{}, errors.Wrap(err, "creating connection")
	}
	svc.recorder.RecordConnectionOp(OpCreate)
	return conn, nil
}

func (svc *Service) buildConnection(ctx context.Context, labID string, nc NewConnection, initial ConnectionStatus) (Connection, error) {
	if nc.SourceDeviceID == nc.TargetDeviceID {
		return Connection{}, ErrSelfLoop
	}
	if !nc.Type.IsValid() {
		return Connection{}, core.NewValidationError(nil, core.FieldError{Field: "connection_type", Error: connectionTypeText})
	}
	if !initial.IsValid() {
		return Connection{}, ErrInvalidStatus
	}

	for _, id := range []string{nc.SourceDeviceID, nc.TargetDeviceID} {
		dev, err := svc.repo.GetDevice(ctx, id)
		if err != nil {
			if errors.Cause(err) == ErrDeviceNotFound {
				return Connection{}, ErrDeviceNotInLab
			}
			return Connection{}, errors.Wrap(err, "finding device")
		}
		if dev.LabID != labID {
			return Connection{}, ErrDeviceNotInLab
		}
	}

	_, err := svc.repo.FindConnection(ctx, labID, nc.SourceDeviceID, nc.TargetDeviceID)
	switch {
	case err == nil:
		return Connection{}, ErrConnectionExists
	case errors.Cause(err) != ErrConnectionNotFound:
		return Connection{}, errors.Wrap(err, "checking existing connection")
	}

	now := time.Now().UTC()
	profile := nc.Type.Profile()
	return Connection{
		ID:             uuid.New().String(),
		LabID:          labID,
		SourceDeviceID: nc.SourceDeviceID,
		TargetDeviceID: nc.TargetDeviceID,
		Type:           nc.Type,
		Status:         initial,
		Bandwidth:      profile.Bandwidth,
		Latency:        profile.Latency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ToggleConnectionStatus flips connected <-> disconnected.
// A connection that is still connecting is returned as is.
func (svc *Service) ToggleConnectionStatus(ctx context.Context, id string) (Connection, error) {
	conn, err := svc.repo.GetConnection(ctx, id)
	if err != nil {
		return Connection{}, err
	}

	var next ConnectionStatus
	switch conn.Status {
	case StatusConnected:
		next = StatusDisconnected
	case StatusDisconnected:
		next = StatusConnected
	default:
		return conn, nil
	}

	conn, err = svc.repo.UpdateConnectionStatus(ctx, id, next, time.Now().UTC())
	if err != nil {
		return Connection{}, errors.Wrap(err, "updating connection status")
	}
	svc.recorder.RecordConnectionOp(OpToggle)
	return conn, nil
}

func (svc *Service) DeleteConnection(ctx context.Context, id string) error {
	if err := svc.repo.DeleteConnection(ctx, id); err != nil {
		return err
	}
	svc.recorder.RecordConnectionOp(OpDelete)
	return nil
}

// Sessions

// StartSession marks the user's session for the lab as running, creating it if needed.
func (svc *Service) StartSession(ctx context.Context, userID, labID string) (Session, error) {
	if _, err := svc.repo.GetLab(ctx, labID); err != nil {
		return Session{}, err
	}
	return svc.setSessionStatus(ctx, userID, labID, SessionRunning)
}

func (svc *Service) StopSession(ctx context.Context, userID, labID string) (Session, error) {
	if _, err := svc.repo.GetSession(ctx, userID, labID); err != nil {
		return Session{}, err
	}
	return svc.setSessionStatus(ctx, userID, labID, SessionStopped)
}

func (svc *Service) setSessionStatus(ctx context.Context, userID, labID string, status SessionStatus) (Session, error) {
	now := time.Now().UTC()
	sess, err := svc.repo.GetSession(ctx, userID, labID)
	switch {
	case err == nil:
	case errors.Cause(err) == ErrSessionNotFound:
		sess = Session{ID: uuid.New().String(), UserID: userID, LabID: labID, StartedAt: now}
	default:
		return Session{}, errors.Wrap(err, "finding session")
	}
	if status == SessionRunning && sess.Status != SessionRunning {
		sess.StartedAt = now
	}
	sess.Status = status
	sess.UpdatedAt = now

	sess, err = svc.repo.SaveSession(ctx, sess)
	return sess, errors.Wrap(err, "saving session")
}

func (svc *Service) GetSession(ctx context.Context, userID, labID string) (Session, error) {
	return svc.repo.GetSession(ctx, userID, labID)
}

// ConnectToDevice hands out the device's remote access url if the user's lab session
// is running and at least one connection touching the device is connected.
// Both conditions are read fresh on every call.
func (svc *Service) ConnectToDevice(ctx context.Context, userID, deviceID string) (ConnectTarget, error) {
	dev, err := svc.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return ConnectTarget{}, err
	}

	sess, err := svc.repo.GetSession(ctx, userID, dev.LabID)
	if err != nil && errors.Cause(err) != ErrSessionNotFound {
		return ConnectTarget{}, errors.Wrap(err, "finding session")
	}
	if err != nil || sess.Status != SessionRunning {
		svc.recorder.RecordConnectAttempt(OutcomeNoSession)
		return ConnectTarget{}, ErrSessionNotRunning
	}

	conns, err := svc.repo.QueryDeviceConnections(ctx, deviceID)
	if err != nil {
		return ConnectTarget{}, errors.Wrap(err, "querying device connections")
	}
	if !anyConnected(conns, deviceID) {
		svc.recorder.RecordConnectAttempt(OutcomeUnreachable)
		return ConnectTarget{}, ErrDeviceUnreachable
	}

	if !dev.URL.Valid || dev.URL.String == "" {
		svc.recorder.RecordConnectAttempt(OutcomeNoURL)
		return ConnectTarget{}, ErrNoRemoteAccess
	}

	svc.recorder.RecordConnectAttempt(OutcomeAllowed)
	svc.logger.Info("device connect", map[string]interface{}{"user": userID, "device": deviceID, "lab": dev.LabID})
	return ConnectTarget{DeviceID: dev.ID, URL: dev.URL.String}, nil
}

func anyConnected(conns []Connection, deviceID string) bool {
	for _, c := range conns {
		if c.Touches(deviceID) && c.Status == StatusConnected {
			return true
		}
	}
	return false
}
