package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixra/ixra-api/internal/core"
)

func TestSubmissionValidate(t *testing.T) {
	tests := []struct {
		name string
		sub  Submission
		want string
	}{
		{name: "missing name", sub: Submission{Email: "a@b.co"}, want: MsgNameTooShort},
		{name: "short trimmed name", sub: Submission{Name: "  J  ", Email: "a@b.co"}, want: MsgNameTooShort},
		{name: "missing email", sub: Submission{Name: "Jo"}, want: MsgInvalidEmail},
		{name: "no domain dot", sub: Submission{Name: "Jo", Email: "jo@example"}, want: MsgInvalidEmail},
		{name: "space in email", sub: Submission{Name: "Jo", Email: "jo smith@example.com"}, want: MsgInvalidEmail},
		{name: "valid", sub: Submission{Name: "Jo", Email: "jo@example.com"}},
		{name: "multibyte name", sub: Submission{Name: "Łu", Email: "lu@example.pl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Message)
		})
	}
}

type memoryLeads struct {
	mu    sync.Mutex
	leads []core.Lead
	err   error
}

func (m *memoryLeads) SaveLead(_ context.Context, lead *core.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.leads = append(m.leads, *lead)
	return nil
}

type recordingNotifier struct {
	name   string
	got    []*core.Lead
	err    error
	closed bool
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, lead *core.Lead) error {
	r.got = append(r.got, lead)
	return r.err
}

func (r *recordingNotifier) Close() error {
	r.closed = true
	return nil
}

func validSubmission() Submission {
	return Submission{
		Name:            " Ada Lovelace ",
		Email:           "ada@example.com",
		SimulationTypes: []string{"CFD", " ", "FEA"},
	}
}

func TestServiceSubmitPersistsAndNotifies(t *testing.T) {
	leads := &memoryLeads{}
	first := &recordingNotifier{name: "first"}
	second := &recordingNotifier{name: "second"}
	svc := NewService(leads, nil, first, second)
	fixed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	svc.Clock = func() time.Time { return fixed }

	lead, err := svc.Submit(context.Background(), validSubmission(), "203.0.113.9")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "Ada Lovelace", lead.Name)
	assert.Equal(t, []string{"CFD", "FEA"}, lead.SimulationTypes)
	assert.Equal(t, "203.0.113.9", lead.ClientID)
	assert.Equal(t, fixed, lead.CreatedAt)

	require.Len(t, leads.leads, 1)
	assert.Equal(t, lead.ID, leads.leads[0].ID)
	require.Len(t, first.got, 1)
	require.Len(t, second.got, 1)

	require.NoError(t, svc.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestServiceSubmitRejectsInvalid(t *testing.T) {
	leads := &memoryLeads{}
	n := &recordingNotifier{name: "n"}
	svc := NewService(leads, nil, n)

	_, err := svc.Submit(context.Background(), Submission{Name: "A", Email: "a@b.co"}, "x")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, leads.leads)
	assert.Empty(t, n.got)
}

func TestServiceSubmitStoreFailure(t *testing.T) {
	leads := &memoryLeads{err: errors.New("disk full")}
	n := &recordingNotifier{name: "n"}
	svc := NewService(leads, nil, n)

	_, err := svc.Submit(context.Background(), validSubmission(), "x")
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
	assert.Empty(t, n.got, "notifiers are skipped when the lead cannot be saved")
}

func TestServiceSubmitNotifierFailure(t *testing.T) {
	bad := &recordingNotifier{name: "smtp", err: errors.New("connection refused")}
	good := &recordingNotifier{name: "log"}
	svc := NewService(nil, nil, bad, good)

	lead, err := svc.Submit(context.Background(), validSubmission(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp")
	require.NotNil(t, lead)
	assert.Len(t, good.got, 1, "remaining notifiers still run")
}

func TestServiceSubmitStoredLeadSurvivesNotifierFailure(t *testing.T) {
	leads := &memoryLeads{}
	bad := &recordingNotifier{name: "kafka", err: errors.New("broker unreachable")}
	good := &recordingNotifier{name: "log"}
	svc := NewService(leads, nil, bad, good)

	lead, err := svc.Submit(context.Background(), validSubmission(), "203.0.113.9")
	require.NoError(t, err, "a saved lead is reported as accepted")
	require.NotNil(t, lead)
	require.Len(t, leads.leads, 1)
	assert.Len(t, bad.got, 1)
	assert.Len(t, good.got, 1)

	// The visitor sees success, so there is no retry to create a second row.
	assert.Equal(t, lead.ID, leads.leads[0].ID)
}

func TestDescribePlaceholders(t *testing.T) {
	d := Describe(&core.Lead{Name: "Ada", Email: "ada@example.com", CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)})
	assert.Equal(t, "Not provided", d.Company)
	assert.Equal(t, "None selected", d.SimulationTypes)
	assert.Equal(t, "No message", d.Message)
	assert.Equal(t, "2025-01-02T03:04:05Z", d.Timestamp)

	d = Describe(&core.Lead{Company: "IXRA", SimulationTypes: []string{"CFD", "FEA"}, Message: "hi"})
	assert.Equal(t, "IXRA", d.Company)
	assert.Equal(t, "CFD, FEA", d.SimulationTypes)
	assert.Equal(t, "hi", d.Message)
}

func TestLogNotifierNilLogger(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.Equal(t, "log", n.Name())
	require.NoError(t, n.Notify(context.Background(), &core.Lead{ID: "1"}))
	require.NoError(t, n.Close())
}

func TestSMTPNotifierSendsMail(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Host: "mail.example.com", Username: "bot@ixra.tech", Password: "pw", To: "LandonKancir@Ixra.tech"})
	require.NoError(t, err)

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	lead := &core.Lead{ID: "lead-1", Name: "Eve\r\nBcc: victim@example.com", Email: "eve@example.com", Message: "Need CFD"}
	require.NoError(t, n.Notify(context.Background(), lead))

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "bot@ixra.tech", gotFrom)
	assert.Equal(t, []string{"LandonKancir@Ixra.tech"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: New IXRA inquiry from Eve  Bcc: victim@example.com\r\n")
	assert.Contains(t, gotMsg, "Reply-To: eve@example.com\r\n")
	assert.Contains(t, gotMsg, "Company: Not provided")
	assert.Contains(t, gotMsg, "Need CFD")

	headers, _, _ := strings.Cut(gotMsg, "\r\n\r\n")
	assert.NotContains(t, headers, "\r\nBcc:")
}

func TestSMTPNotifierConfig(t *testing.T) {
	_, err := NewSMTPNotifier(SMTPConfig{})
	require.Error(t, err)

	_, err = NewSMTPNotifier(SMTPConfig{Host: "mail.example.com"})
	require.ErrorContains(t, err, "recipient")

	n, err := NewSMTPNotifier(SMTPConfig{Host: "mail.example.com", Port: 2525, To: "a@b.co"})
	require.NoError(t, err)
	var gotAuth smtp.Auth
	var gotAddr string
	n.send = func(addr string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		gotAddr, gotAuth = addr, a
		return errors.New("refused")
	}
	err = n.Notify(context.Background(), &core.Lead{ID: "1"})
	require.ErrorContains(t, err, "refused")
	assert.Equal(t, "mail.example.com:2525", gotAddr)
	assert.Nil(t, gotAuth, "no auth without a username")
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaNotifierPublishesEvent(t *testing.T) {
	w := &fakeWriter{}
	n := newKafkaNotifier(w, time.Second)
	n.clock = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	lead := &core.Lead{ID: "lead-42", Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, n.Notify(context.Background(), lead))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "lead-42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventTypeLeadCaptured, string(msg.Headers[0].Value))

	var event LeadCapturedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, LeadSchemaVersion, event.SchemaVersion)
	assert.Equal(t, EventTypeLeadCaptured, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "ada@example.com", event.Lead.Email)

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifierErrors(t *testing.T) {
	n := newKafkaNotifier(&fakeWriter{err: errors.New("leader not available")}, time.Second)
	err := n.Notify(context.Background(), &core.Lead{ID: "1"})
	require.ErrorContains(t, err, "leader not available")

	require.Error(t, n.Notify(context.Background(), nil))

	_, err = NewKafkaNotifier(KafkaConfig{Brokers: []string{" "}})
	require.ErrorContains(t, err, "brokers")
	_, err = NewKafkaNotifier(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.ErrorContains(t, err, "topic")

	real, err := NewKafkaNotifier(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "ixra.leads"})
	require.NoError(t, err)
	require.NoError(t, real.Close())
}
