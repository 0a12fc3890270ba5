package lab_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/lab"
	inmemdb "github.com/trezcool/cyberlab/storage/database/inmem"
	"github.com/trezcool/cyberlab/tests"
)

type recorder struct {
	ops      []string
	attempts []string
}

func (r *recorder) RecordConnectionOp(op string)        { r.ops = append(r.ops, op) }
func (r *recorder) RecordConnectAttempt(outcome string) { r.attempts = append(r.attempts, outcome) }

func setup(t *testing.T) (*lab.Service, *recorder) {
	t.Helper()
	rec := new(recorder)
	repo := inmemdb.NewLabRepository(inmemdb.Open())
	return lab.NewService(repo, testutil.NewLogger(), testutil.NewConfig(), rec), rec
}

func TestNewService_panicsWithoutRepo(t *testing.T) {
	assert.Panics(t, func() { lab.NewService(nil, testutil.NewLogger(), testutil.NewConfig()) })
}

func TestService_AddConnection(t *testing.T) {
	svc, rec := setup(t)
	ctx := context.Background()

	lb := testutil.CreateLab(t, svc, "Routing 101")
	other := testutil.CreateLab(t, svc, "Other")
	router := testutil.CreateDevice(t, svc, lb.ID, "R1", lab.DeviceRouter, "")
	server := testutil.CreateDevice(t, svc, lb.ID, "S1", lab.DeviceServer, "ssh://10.0.0.2")
	laptop := testutil.CreateDevice(t, svc, lb.ID, "L1", lab.DeviceLaptop, "")
	foreign := testutil.CreateDevice(t, svc, other.ID, "F1", lab.DeviceServer, "")

	conn, err := svc.AddConnection(ctx, lb.ID, lab.NewConnection{
		SourceDeviceID: router.ID, TargetDeviceID: server.ID, Type: lab.ConnectionFiber,
	}, lab.StatusDisconnected)
	require.NoError(t, err)
	assert.Equal(t, lab.StatusDisconnected, conn.Status)
	assert.Equal(t, "1 Gbps", conn.Bandwidth)
	assert.Equal(t, "2ms", conn.Latency)
	assert.Equal(t, lb.ID, conn.LabID)

	tests := []struct {
		name    string
		nc      lab.NewConnection
		status  lab.ConnectionStatus
		wantErr error
	}{
		{
			name:    "duplicate same direction",
			nc:      lab.NewConnection{SourceDeviceID: router.ID, TargetDeviceID: server.ID, Type: lab.ConnectionEthernet},
			status:  lab.StatusConnected,
			wantErr: lab.ErrConnectionExists,
		},
		{
			name:    "duplicate reverse direction",
			nc:      lab.NewConnection{SourceDeviceID: server.ID, TargetDeviceID: router.ID, Type: lab.ConnectionWifi},
			status:  lab.StatusConnected,
			wantErr: lab.ErrConnectionExists,
		},
		{
			name:    "self loop",
			nc:      lab.NewConnection{SourceDeviceID: laptop.ID, TargetDeviceID: laptop.ID, Type: lab.ConnectionWifi},
			status:  lab.StatusConnected,
			wantErr: lab.ErrSelfLoop,
		},
		{
			name:    "device of another lab",
			nc:      lab.NewConnection{SourceDeviceID: laptop.ID, TargetDeviceID: foreign.ID, Type: lab.ConnectionWifi},
			status:  lab.StatusConnected,
			wantErr: lab.ErrDeviceNotInLab,
		},
		{
			name:    "unknown device",
			nc:      lab.NewConnection{SourceDeviceID: laptop.ID, TargetDeviceID: "nope", Type: lab.ConnectionWifi},
			status:  lab.StatusConnected,
			wantErr: lab.ErrDeviceNotInLab,
		},
		{
			name:    "bad status",
			nc:      lab.NewConnection{SourceDeviceID: laptop.ID, TargetDeviceID: router.ID, Type: lab.ConnectionWifi},
			status:  lab.ConnectionStatus("broken"),
			wantErr: lab.ErrInvalidStatus,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddConnection(ctx, lb.ID, tt.nc, tt.status)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}

	t.Run("bad type", func(t *testing.T) {
		_, err := svc.AddConnection(ctx, lb.ID, lab.NewConnection{
			SourceDeviceID: laptop.ID, TargetDeviceID: router.ID, Type: "serial",
		}, lab.StatusConnected)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "connection_type", vErr.Fields[0].Field)
	})

	t.Run("conflict error is a conflict", func(t *testing.T) {
		assert.True(t, core.IsConflict(lab.ErrConnectionExists))
	})

	topo, err := svc.GetTopology(ctx, lb.ID)
	require.NoError(t, err)
	assert.Len(t, topo.Connections, 1, "rejected connections must not be stored")
	assert.Equal(t, []string{lab.OpCreate}, rec.ops)
}

func TestService_ToggleConnectionStatus(t *testing.T) {
	svc, rec := setup(t)
	ctx := context.Background()

	lb := testutil.CreateLab(t, svc, "Toggle")
	a := testutil.CreateDevice(t, svc, lb.ID, "A", lab.DeviceRouter, "")
	b := testutil.CreateDevice(t, svc, lb.ID, "B", lab.DeviceSwitch, "")
	c := testutil.CreateDevice(t, svc, lb.ID, "C", lab.DeviceSwitch, "")
	conn := testutil.Connect(t, svc, lb.ID, a.ID, b.ID, lab.StatusConnected)
	pending := testutil.Connect(t, svc, lb.ID, a.ID, c.ID, lab.StatusConnecting)

	got, err := svc.ToggleConnectionStatus(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, lab.StatusDisconnected, got.Status)

	got, err = svc.ToggleConnectionStatus(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, lab.StatusConnected, got.Status)

	got, err = svc.ToggleConnectionStatus(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, lab.StatusConnecting, got.Status)
	assert.Equal(t, pending.UpdatedAt, got.UpdatedAt, "connecting connections are not written")

	_, err = svc.ToggleConnectionStatus(ctx, "nope")
	assert.Equal(t, lab.ErrConnectionNotFound, errors.Cause(err))

	assert.Equal(t, []string{lab.OpCreate, lab.OpCreate, lab.OpToggle, lab.OpToggle}, rec.ops)
}

func TestService_DeleteDevice_cascades(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	lb := testutil.CreateLab(t, svc, "Cascade")
	a := testutil.CreateDevice(t, svc, lb.ID, "A", lab.DeviceRouter, "")
	b := testutil.CreateDevice(t, svc, lb.ID, "B", lab.DeviceServer, "")
	c := testutil.CreateDevice(t, svc, lb.ID, "C", lab.DeviceServer, "")
	testutil.Connect(t, svc, lb.ID, a.ID, b.ID, lab.StatusConnected)
	testutil.Connect(t, svc, lb.ID, c.ID, a.ID, lab.StatusConnected)
	keep := testutil.Connect(t, svc, lb.ID, b.ID, c.ID, lab.StatusConnected)

	require.NoError(t, svc.DeleteDevice(ctx, a.ID))

	topo, err := svc.GetTopology(ctx, lb.ID)
	require.NoError(t, err)
	assert.Len(t, topo.Devices, 2)
	require.Len(t, topo.Connections, 1)
	assert.Equal(t, keep.ID, topo.Connections[0].ID)

	assert.Equal(t, lab.ErrDeviceNotFound, errors.Cause(svc.DeleteDevice(ctx, a.ID)))

	// the pair can be linked again once the old link is gone
	d := testutil.CreateDevice(t, svc, lb.ID, "D", lab.DeviceRouter, "")
	testutil.Connect(t, svc, lb.ID, d.ID, b.ID, lab.StatusDisconnected)
}

func TestService_GetTopology(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	lb := testutil.CreateLab(t, svc, "Topology")
	placed := testutil.CreateDevice(t, svc, lb.ID, "placed", lab.DeviceRouter, "", 150, 220)
	testutil.CreateDevice(t, svc, lb.ID, "origin", lab.DeviceServer, "", 0, 0)

	topo, err := svc.GetTopology(ctx, lb.ID)
	require.NoError(t, err)
	require.Len(t, topo.Devices, 2)
	assert.Equal(t, lb, topo.Lab)
	assert.Empty(t, topo.Connections)

	for _, d := range topo.Devices {
		assert.True(t, d.HasPosition(), d.Name)
		if d.ID == placed.ID {
			assert.Equal(t, 150, d.X.Int)
			assert.Equal(t, 220, d.Y.Int)
		}
	}

	// layout is not persisted
	stored, err := svc.GetDevice(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed, stored)

	_, err = svc.GetTopology(ctx, "nope")
	assert.True(t, core.IsNotFound(err))
}

func TestService_UpdateDevice(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	lb := testutil.CreateLab(t, svc, "Devices")
	dev := testutil.CreateDevice(t, svc, lb.ID, "PC", lab.DeviceComputer, "pc.rdp")

	name, typ, empty := "Workstation", lab.DeviceLaptop, ""
	got, err := svc.UpdateDevice(ctx, dev.ID, lab.UpdateDevice{Name: &name, Type: &typ, URL: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Workstation", got.Name)
	assert.Equal(t, lab.DeviceLaptop, got.Type)
	assert.False(t, got.URL.Valid)
	assert.Equal(t, dev.IP, got.IP)

	x, y := 42, 84
	got, err = svc.MoveDevice(ctx, dev.ID, lab.MoveDevice{X: &x, Y: &y})
	require.NoError(t, err)
	assert.Equal(t, 42, got.X.Int)
	assert.Equal(t, 84, got.Y.Int)
	assert.Equal(t, "Workstation", got.Name)

	_, err = svc.CreateDevice(ctx, "nope", lab.NewDevice{Name: "x", Type: lab.DeviceServer})
	assert.Equal(t, lab.ErrLabNotFound, errors.Cause(err))
}

func TestService_ConnectToDevice(t *testing.T) {
	svc, rec := setup(t)
	ctx := context.Background()
	userID := "student-1"

	lb := testutil.CreateLab(t, svc, "Remote")
	server := testutil.CreateDevice(t, svc, lb.ID, "S1", lab.DeviceServer, "ssh://10.0.0.2")
	router := testutil.CreateDevice(t, svc, lb.ID, "R1", lab.DeviceRouter, "")
	bare := testutil.CreateDevice(t, svc, lb.ID, "S2", lab.DeviceServer, "")
	conn := testutil.Connect(t, svc, lb.ID, router.ID, server.ID, lab.StatusDisconnected)
	testutil.Connect(t, svc, lb.ID, bare.ID, router.ID, lab.StatusConnected)

	// no session
	_, err := svc.ConnectToDevice(ctx, userID, server.ID)
	assert.Equal(t, lab.ErrSessionNotRunning, errors.Cause(err))

	_, err = svc.StartSession(ctx, userID, lb.ID)
	require.NoError(t, err)

	// session running, link down
	_, err = svc.ConnectToDevice(ctx, userID, server.ID)
	assert.Equal(t, lab.ErrDeviceUnreachable, errors.Cause(err))
	assert.True(t, core.IsForbidden(err))

	// link up (the device is the target end)
	_, err = svc.ToggleConnectionStatus(ctx, conn.ID)
	require.NoError(t, err)
	target, err := svc.ConnectToDevice(ctx, userID, server.ID)
	require.NoError(t, err)
	assert.Equal(t, lab.ConnectTarget{DeviceID: server.ID, URL: "ssh://10.0.0.2"}, target)

	// reachable but no remote access
	_, err = svc.ConnectToDevice(ctx, userID, bare.ID)
	assert.Equal(t, lab.ErrNoRemoteAccess, errors.Cause(err))

	// checked again on every call
	_, err = svc.StopSession(ctx, userID, lb.ID)
	require.NoError(t, err)
	_, err = svc.ConnectToDevice(ctx, userID, server.ID)
	assert.Equal(t, lab.ErrSessionNotRunning, errors.Cause(err))

	// another user's session does not count
	_, err = svc.StartSession(ctx, "student-2", lb.ID)
	require.NoError(t, err)
	_, err = svc.ConnectToDevice(ctx, userID, server.ID)
	assert.Equal(t, lab.ErrSessionNotRunning, errors.Cause(err))

	_, err = svc.ConnectToDevice(ctx, userID, "nope")
	assert.Equal(t, lab.ErrDeviceNotFound, errors.Cause(err))

	assert.Equal(t, []string{
		lab.OutcomeNoSession, lab.OutcomeUnreachable, lab.OutcomeAllowed, lab.OutcomeNoURL,
		lab.OutcomeNoSession, lab.OutcomeNoSession,
	}, rec.attempts)
}

func TestService_Sessions(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	lb := testutil.CreateLab(t, svc, "Sessions")

	_, err := svc.StopSession(ctx, "u1", lb.ID)
	assert.Equal(t, lab.ErrSessionNotFound, errors.Cause(err))

	started, err := svc.StartSession(ctx, "u1", lb.ID)
	require.NoError(t, err)
	assert.Equal(t, lab.SessionRunning, started.Status)

	again, err := svc.StartSession(ctx, "u1", lb.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, again.ID)

	stopped, err := svc.StopSession(ctx, "u1", lb.ID)
	require.NoError(t, err)
	assert.Equal(t, lab.SessionStopped, stopped.Status)
	assert.Equal(t, started.ID, stopped.ID)

	_, err = svc.StartSession(ctx, "u1", "nope")
	assert.Equal(t, lab.ErrLabNotFound, errors.Cause(err))
}

func TestService_Labs(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	first := testutil.CreateLab(t, svc, "Firewalls")
	second, err := svc.CreateLab(ctx, lab.NewLab{Title: "Routing", CourseID: "c1", Status: "published"})
	require.NoError(t, err)
	assert.Equal(t, "draft", first.Status)

	labs, err := svc.QueryLabs(ctx, &lab.QueryFilter{CourseID: "c1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []lab.Lab{second}, labs)

	labs, err = svc.QueryLabs(ctx, &lab.QueryFilter{Search: "fire"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []lab.Lab{first}, labs)

	labs, err = svc.QueryLabs(ctx, nil, []core.DBOrdering{{Field: "title", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, []lab.Lab{first, second}, labs)

	title := "Advanced Routing"
	updated, err := svc.UpdateLab(ctx, second.ID, lab.UpdateLab{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Routing", updated.Title)
	assert.Equal(t, "c1", updated.CourseID)

	dev := testutil.CreateDevice(t, svc, second.ID, "R1", lab.DeviceRouter, "")
	require.NoError(t, svc.DeleteLab(ctx, second.ID))
	_, err = svc.GetDevice(ctx, dev.ID)
	assert.Equal(t, lab.ErrDeviceNotFound, errors.Cause(err))
	assert.Equal(t, lab.ErrLabNotFound, errors.Cause(svc.DeleteLab(ctx, second.ID)))
}
