package aiclassify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cleanup/internal/classify"
	"github.com/sells-group/crm-cleanup/internal/engine"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/resilience"
	"github.com/sells-group/crm-cleanup/pkg/anthropic"
)

// mockClient implements anthropic.Client for testing.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func reply(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 3},
	}
}

func aboutCompany(company string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, "Company: "+company)
	})
}

func testConfig() Config {
	return Config{
		Timeout:           time.Second,
		RequestsPerSecond: 1000,
		Concurrency:       2,
		Retry:             resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		BreakerThreshold:  10,
	}
}

func contact(id int, fields map[string]string) *model.Record {
	rec := model.RecordFromMap(id, fields)
	if rec.IsEmpty(model.FieldCategory) {
		rec.Set(model.FieldCategory, string(model.CategoryContact))
	}
	return rec
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name string
		rec  *model.Record
		want bool
	}{
		{"company", contact(0, map[string]string{"Company": "Acme Widgets"}), true},
		{"business email", contact(0, map[string]string{"Email": "sam@acmewidgets.com"}), true},
		{"webmail only", contact(0, map[string]string{"Email": "sam@gmail.com"}), false},
		{"already agent", contact(0, map[string]string{"Company": "X", model.FieldCategory: "Agent"}), false},
		{"duplicate", contact(0, map[string]string{"Company": "X", model.FieldTags: "CRMDuplicate"}), false},
		{"past client", contact(0, map[string]string{"Company": "X", model.FieldGroups: "Past Clients"}), false},
		{"nothing", contact(0, map[string]string{"First": "Sam"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.rec))
		})
	}
}

func TestParseAnswer(t *testing.T) {
	cat, reason, err := ParseAnswer(`{"category": "Vendor", "reason": "escrow company"}`)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryVendor, cat)
	assert.Equal(t, "AI: escrow company", reason)

	cat, _, err = ParseAnswer("Sure! ```json\n{\"category\":\"agent\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryAgent, cat)

	for _, text := range []string{`{"category": null}`, `{"category": "Contact"}`, `{"category": "Plumber"}`} {
		cat, _, err := ParseAnswer(text)
		require.NoError(t, err, text)
		assert.Empty(t, cat, text)
	}

	_, _, err = ParseAnswer("I am not sure")
	assert.Error(t, err)
	_, _, err = ParseAnswer("{not json}")
	assert.Error(t, err)
}

func TestRefine_Suggestions(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, aboutCompany("Sunrise Escrow Partners")).
		Return(reply(`{"category":"Vendor","reason":"escrow firm"}`), nil)
	mc.On("CreateMessage", mock.Anything, aboutCompany("Jones Family Trust")).
		Return(reply(`{"category":null,"reason":"private person"}`), nil)

	records := []*model.Record{
		contact(0, map[string]string{"First": "Ann", "Company": "Sunrise Escrow Partners"}),
		contact(1, map[string]string{"First": "Bo", "Company": "Jones Family Trust"}),
		contact(2, map[string]string{"First": "Cy", "Email": "cy@gmail.com"}),
	}

	rep, err := New(mc, testConfig()).Refine(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Candidates)
	require.Len(t, rep.Suggestions, 1)
	assert.Equal(t, Suggestion{RecordID: 0, Category: model.CategoryVendor, Reason: "AI: escrow firm"}, rep.Suggestions[0])
	assert.Equal(t, int64(20), rep.Usage.InputTokens)
	mc.AssertExpectations(t)
}

func TestRefine_RetriesTransientErrors(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(reply(`{"category":"Agent","reason":"broker"}`), nil).Once()

	records := []*model.Record{contact(0, map[string]string{"Company": "Lone Star Realty Group"})}
	rep, err := New(mc, testConfig()).Refine(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, rep.Suggestions, 1)
	assert.Equal(t, model.CategoryAgent, rep.Suggestions[0].Category)
	mc.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestRefine_FailuresLeaveRecordsAlone(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key"))

	records := []*model.Record{contact(0, map[string]string{"Company": "Acme"})}
	rep, err := New(mc, testConfig()).Refine(context.Background(), records)
	require.NoError(t, err)
	assert.Empty(t, rep.Suggestions)
	assert.Equal(t, 1, rep.Failed)
	mc.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestRefine_BreakerSkipsRemaining(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("bad request"))

	cfg := testConfig()
	cfg.Concurrency = 1
	cfg.BreakerThreshold = 2

	var records []*model.Record
	for i := 0; i < 5; i++ {
		records = append(records, contact(i, map[string]string{"Company": "Acme"}))
	}
	rep, err := New(mc, cfg).Refine(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, 3, rep.Skipped)
	mc.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestRefine_Cancelled(t *testing.T) {
	mc := new(mockClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []*model.Record{contact(0, map[string]string{"Company": "Acme"})}
	rep, err := New(mc, testConfig()).Refine(ctx, records)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.Suggestions)
	mc.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestApply(t *testing.T) {
	recs := []*model.Record{
		model.RecordFromMap(0, map[string]string{"First": "Sam", "Email": "sam@acmewidgets.com"}),
		model.RecordFromMap(1, map[string]string{"First": "Pat", "Groups": "Past Client", "Email": "pat@gmail.com"}),
	}
	eng := engine.New(classify.New(classify.DefaultRules()))
	res, err := eng.Run(context.Background(), recs)
	require.NoError(t, err)

	n := Apply(eng, res, []Suggestion{
		{RecordID: 0, Category: model.CategoryVendor, Reason: "AI: widget supplier"},
		{RecordID: 1, Category: model.CategoryAgent, Reason: "AI: ignored"},
		{RecordID: 99, Category: model.CategoryAgent, Reason: "AI: unknown record"},
	})
	assert.Equal(t, 1, n)
	assert.Equal(t, "Vendor", recs[0].Get(model.FieldCategory))
	assert.Equal(t, "Category set to Vendor (AI: widget supplier); Group: None to Vendors", recs[0].Get(model.FieldChangesMade))
	assert.Equal(t, 1, res.Stats.Vendors)
	assert.Equal(t, "Contact", recs[1].Get(model.FieldCategory))
}
