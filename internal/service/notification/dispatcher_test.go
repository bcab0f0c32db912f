package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/memory"
	"github.com/jwalitptl/clinic-scheduler/internal/service/relation"
	"github.com/jwalitptl/clinic-scheduler/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

type sent struct {
	address string
	text    string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (m *fakeMessenger) Send(_ context.Context, address, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sent{address: address, text: text})
	return nil
}

func (m *fakeMessenger) addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.address)
	}
	return out
}

type failingAppends struct {
	repository.NotificationRepository
	failFor uuid.UUID
}

func (f *failingAppends) Append(ctx context.Context, n *model.Notification) error {
	if n.RecipientID == f.failFor {
		return errors.New("disk full")
	}
	return f.NotificationRepository.Append(ctx, n)
}

type fixture struct {
	store      *memory.Store
	sync       *relation.Synchronizer
	messenger  *fakeMessenger
	metrics    *metrics.Metrics
	dispatcher *Dispatcher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:     store,
		sync:      relation.NewSynchronizer(store.Relations(), nil),
		messenger: &fakeMessenger{},
		metrics:   metrics.New("test", prometheus.NewRegistry()),
	}
	f.dispatcher = NewDispatcher(f.deps(store.Notifications()), cfg)
	return f
}

func (f *fixture) deps(notifications repository.NotificationRepository) Deps {
	return Deps{
		Notifications: notifications,
		Appointments:  f.store.Appointments(),
		Hydrator:      f.sync,
		People:        f.store.People(),
		Resolver:      NewDirectoryResolver(f.store.People(), ChannelEmail),
		Messenger:     f.messenger,
		Metrics:       f.metrics,
	}
}

func (f *fixture) person(t *testing.T, role model.ParticipantRole, name, email string) uuid.UUID {
	t.Helper()
	p := &model.Person{Role: role, Name: name, Email: email}
	require.NoError(t, f.store.People().Create(context.Background(), p))
	return p.ID
}

func (f *fixture) book(t *testing.T, date, tm, service string, patients, providers []uuid.UUID) *model.Appointment {
	t.Helper()
	ctx := context.Background()
	a := &model.Appointment{Date: date, Time: tm, ServiceType: service, Status: model.AppointmentStatusPending}
	a.SetParticipants(patients, providers)
	require.NoError(t, f.store.Appointments().Create(ctx, a))
	require.NoError(t, f.sync.SyncLinks(ctx, a.ID, a.PatientIDs, a.ProviderIDs))
	return a
}

func messagesFor(out *Outcome, id uuid.UUID) []model.OutboundMessage {
	var res []model.OutboundMessage
	for _, m := range out.Messages {
		if m.RecipientID == id {
			res = append(res, m)
		}
	}
	return res
}

func TestDispatch_RecordsOnePerProvider(t *testing.T) {
	f := newFixture(t, Config{OutboundEnabled: true})
	ctx := context.Background()

	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "ana@example.com")
	p2 := f.person(t, model.ParticipantRolePatient, "Ben", "ben@example.com")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Cruz", "cruz@example.com")
	d2 := f.person(t, model.ParticipantRoleProvider, "Dr. Diaz", "diaz@example.com")
	a := f.book(t, "2026-02-02", "09:00", "Group therapy", []uuid.UUID{p1, p2}, []uuid.UUID{d1, d2})

	out, err := f.dispatcher.Dispatch(ctx, Event{Kind: model.NotificationKindCreate, Appointment: a})
	require.NoError(t, err)
	f.dispatcher.Wait()

	require.Len(t, out.Messages, 4)
	assert.Equal(t, model.ParticipantRolePatient, out.Messages[0].Role)
	assert.Equal(t, model.ParticipantRolePatient, out.Messages[1].Role)
	assert.Equal(t, model.ParticipantRoleProvider, out.Messages[2].Role)
	assert.Len(t, out.Records, 2)
	assert.Nil(t, out.Warning)

	for _, d := range []uuid.UUID{d1, d2} {
		recs, err := f.store.Notifications().ListByRecipient(ctx, d)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, model.NotificationKindCreate, recs[0].Kind)
		require.NotNil(t, recs[0].AppointmentID)
		assert.Equal(t, a.ID, *recs[0].AppointmentID)
		assert.Contains(t, recs[0].Message, "Ana, Ben")
	}
	for _, p := range []uuid.UUID{p1, p2} {
		recs, err := f.store.Notifications().ListByRecipient(ctx, p)
		require.NoError(t, err)
		assert.Empty(t, recs)
	}

	assert.ElementsMatch(t,
		[]string{"ana@example.com", "ben@example.com", "cruz@example.com", "diaz@example.com"},
		f.messenger.addresses())
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.DispatchAttempts.WithLabelValues("sent")))
}

func TestDispatch_SameDaySummaryForPatient(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Cruz", "")
	d2 := f.person(t, model.ParticipantRoleProvider, "Dr. Diaz", "")
	late := f.book(t, "2026-02-02", "10:00", "Physio", []uuid.UUID{p1}, []uuid.UUID{d2})
	early := f.book(t, "2026-02-02", "09:00", "Consult", []uuid.UUID{p1}, []uuid.UUID{d1})
	f.book(t, "2026-02-03", "09:00", "Consult", []uuid.UUID{p1}, []uuid.UUID{d1})

	for _, trigger := range []*model.Appointment{early, late} {
		out, err := f.dispatcher.Dispatch(ctx, Event{Kind: model.NotificationKindUpdate, Appointment: trigger})
		require.NoError(t, err)

		patientMsgs := messagesFor(out, p1)
		require.Len(t, patientMsgs, 1)
		text := patientMsgs[0].Text
		assert.Contains(t, text, "Your appointments on 2026-02-02:")
		assert.Contains(t, text, "09:00 with Dr. Cruz (Consult)")
		assert.Contains(t, text, "10:00 with Dr. Diaz (Physio)")
		assert.Less(t, strings.Index(text, "09:00"), strings.Index(text, "10:00"))
		assert.NotContains(t, text, "2026-02-03")

		for _, m := range out.Messages {
			if m.Role == model.ParticipantRoleProvider {
				assert.NotContains(t, m.Text, "Your appointments")
				assert.Contains(t, m.Text, trigger.Time)
			}
		}
	}
}

func TestDispatch_CancelledDescribedAlone(t *testing.T) {
	f := newFixture(t, Config{})
	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Cruz", "")
	f.book(t, "2026-02-02", "10:00", "", []uuid.UUID{p1}, []uuid.UUID{d1})
	a := f.book(t, "2026-02-02", "09:00", "", []uuid.UUID{p1}, []uuid.UUID{d1})
	a.Status = model.AppointmentStatusCancelled

	out, err := f.dispatcher.Dispatch(context.Background(), Event{Kind: model.NotificationKindCancel, Appointment: a})
	require.NoError(t, err)

	msgs := messagesFor(out, p1)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Your appointment on 2026-02-02 at 09:00 with Dr. Cruz was cancelled.", msgs[0].Text)
}

func TestDispatch_OutboundDisabledStillPersists(t *testing.T) {
	f := newFixture(t, Config{OutboundEnabled: false})
	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Cruz", "cruz@example.com")
	a := f.book(t, "2026-02-02", "09:00", "", []uuid.UUID{p1}, []uuid.UUID{d1})

	out, err := f.dispatcher.Dispatch(context.Background(), Event{Kind: model.NotificationKindCreate, Appointment: a})
	require.NoError(t, err)
	f.dispatcher.Wait()

	assert.Len(t, out.Records, 1)
	assert.Nil(t, out.Warning)
	assert.Empty(t, f.messenger.addresses())
}

func TestDispatch_UnreachableRecipientsAggregated(t *testing.T) {
	f := newFixture(t, Config{OutboundEnabled: true})
	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "")
	p2 := f.person(t, model.ParticipantRolePatient, "Ben", "ben@example.com")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Cruz", "")
	unknown := uuid.New()
	a := f.book(t, "2026-02-02", "09:00", "", []uuid.UUID{p1, p2, unknown}, []uuid.UUID{d1})

	out, err := f.dispatcher.Dispatch(context.Background(), Event{Kind: model.NotificationKindCreate, Appointment: a})
	require.NoError(t, err)
	f.dispatcher.Wait()

	require.NotNil(t, out.Warning)
	assert.ElementsMatch(t, []uuid.UUID{p1, unknown, d1}, out.Warning.Recipients)
	assert.Equal(t, []string{"ben@example.com"}, f.messenger.addresses())
	assert.Len(t, out.Records, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.UnreachableRecipients))
}

func TestDispatch_SendFailureDoesNotFailDispatch(t *testing.T) {
	f := newFixture(t, Config{OutboundEnabled: true})
	f.messenger.err = errors.New("smtp down")
	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "ana@example.com")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Cruz", "cruz@example.com")
	a := f.book(t, "2026-02-02", "09:00", "", []uuid.UUID{p1}, []uuid.UUID{d1})

	out, err := f.dispatcher.Dispatch(context.Background(), Event{Kind: model.NotificationKindCreate, Appointment: a})
	require.NoError(t, err)
	f.dispatcher.Wait()

	assert.Nil(t, out.Warning)
	assert.Len(t, out.Records, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.DispatchAttempts.WithLabelValues("error")))
}

func TestDispatch_RecordFailureIsIndependent(t *testing.T) {
	f := newFixture(t, Config{})
	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Cruz", "")
	d2 := f.person(t, model.ParticipantRoleProvider, "Dr. Diaz", "")
	a := f.book(t, "2026-02-02", "09:00", "", []uuid.UUID{p1}, []uuid.UUID{d1, d2})

	dispatcher := NewDispatcher(f.deps(&failingAppends{NotificationRepository: f.store.Notifications(), failFor: d1}), Config{})
	out, err := dispatcher.Dispatch(context.Background(), Event{Kind: model.NotificationKindCreate, Appointment: a})
	require.NoError(t, err)

	require.Len(t, out.RecordErrors, 1)
	require.Len(t, out.Records, 1)
	assert.Equal(t, d2, out.Records[0].RecipientID)
}

func TestDispatch_RescheduleSupersedesEarlierReschedule(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Cruz", "")
	a := f.book(t, "2026-02-02", "09:00", "", []uuid.UUID{p1}, []uuid.UUID{d1})

	_, err := f.dispatcher.Dispatch(ctx, Event{Kind: model.NotificationKindCreate, Appointment: a})
	require.NoError(t, err)
	_, err = f.dispatcher.Dispatch(ctx, Event{Kind: model.NotificationKindReschedule, Appointment: a})
	require.NoError(t, err)

	prev := a.Clone()
	a.Date, a.Time = "2026-02-03", "10:00"
	out, err := f.dispatcher.Dispatch(ctx, Event{Kind: model.NotificationKindReschedule, Appointment: a, Previous: prev})
	require.NoError(t, err)

	recs, err := f.store.Notifications().ListByRecipient(ctx, d1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.NotificationKindCreate, recs[0].Kind)
	assert.Equal(t, model.NotificationKindReschedule, recs[1].Kind)
	assert.Equal(t, out.Records[0].ID, recs[1].ID)
	assert.Contains(t, recs[1].Message, "moved from 2026-02-02 at 09:00 to 2026-02-03 at 10:00")
}

func TestDispatch_RequiresAppointment(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.dispatcher.Dispatch(context.Background(), Event{Kind: model.NotificationKindCreate})
	assert.Error(t, err)
}

func TestGuardedMessenger_BreakerOpens(t *testing.T) {
	next := &fakeMessenger{err: errors.New("boom")}
	g := NewGuardedMessenger(next, GuardConfig{
		Breaker: circuitbreaker.Settings{Name: "test", ConsecutiveFailures: 2, Timeout: time.Minute},
	})
	ctx := context.Background()

	assert.EqualError(t, g.Send(ctx, "a", "x"), "boom")
	assert.EqualError(t, g.Send(ctx, "a", "x"), "boom")

	next.err = nil
	assert.Error(t, g.Send(ctx, "a", "x"))
	assert.Empty(t, next.addresses())
}

func TestGuardedMessenger_RateLimitHonoursContext(t *testing.T) {
	next := &fakeMessenger{}
	g := NewGuardedMessenger(next, GuardConfig{RatePerSecond: 0.001, Burst: 1})

	require.NoError(t, g.Send(context.Background(), "a", "x"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Send(ctx, "b", "y"))
	assert.Equal(t, []string{"a"}, next.addresses())
}

func TestRecordReschedule_ProvidersOnlyNoSends(t *testing.T) {
	f := newFixture(t, Config{OutboundEnabled: true})
	ctx := context.Background()
	p1 := f.person(t, model.ParticipantRolePatient, "Ana", "ana@example.com")
	d1 := f.person(t, model.ParticipantRoleProvider, "Dr. Lima", "lima@example.com")
	d2 := f.person(t, model.ParticipantRoleProvider, "Dr. Reis", "reis@example.com")
	a := f.book(t, "2026-02-02", "09:00", "", []uuid.UUID{p1}, []uuid.UUID{d1, d2})

	out, err := f.dispatcher.RecordReschedule(ctx, a)
	require.NoError(t, err)
	f.dispatcher.Wait()

	assert.Len(t, out.Records, 2)
	assert.Empty(t, f.messenger.addresses())
	for _, rec := range out.Records {
		assert.Equal(t, model.NotificationKindReschedule, rec.Kind)
		assert.Contains(t, rec.Message, "needs to be rescheduled")
	}

	_, err = f.dispatcher.RecordReschedule(ctx, a)
	require.NoError(t, err)
	inbox, err := f.store.Notifications().ListByRecipient(ctx, d1)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}
