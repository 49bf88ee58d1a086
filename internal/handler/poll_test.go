package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/handler"
)

// tallyPoll builds a stored poll with the given per-choice vote counts.
func tallyPoll(id uuid.UUID, votes ...int) domain.Poll {
	poll := domain.Poll{
		ID:          id,
		Title:       "Where should we stay?",
		Expiry:      time.Now().Add(24 * time.Hour),
		Departments: []uuid.UUID{uuid.New()},
		CreatedBy:   uuid.New(),
	}
	for i, v := range votes {
		poll.Choices = append(poll.Choices, domain.Choice{
			ID:     uuid.New(),
			PollID: id,
			Text:   []string{"Cabin", "Hotel", "Campground"}[i%3],
			Votes:  v,
		})
	}
	return poll
}

func TestGetPoll_singleVoterShowsFullAndZeroPercentages(t *testing.T) {
	pollID := uuid.New()
	m, h := newTestServer(uuid.New())
	m.polls.getByID = func(_ context.Context, id uuid.UUID) (domain.Poll, error) {
		assert.Equal(t, pollID, id)
		return tallyPoll(id, 1, 0), nil
	}

	req := httptest.NewRequest(http.MethodGet, "/polls/"+pollID.String(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.PollResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Choices, 2)
	assert.Equal(t, 1, body.TotalVotes)
	assert.Equal(t, 100.0, body.Choices[0].Percentage)
	assert.Equal(t, 0.0, body.Choices[1].Percentage)
}

func TestGetPoll_splitVoteShowsEqualPercentages(t *testing.T) {
	pollID := uuid.New()
	m, h := newTestServer(uuid.New())
	m.polls.getByID = func(_ context.Context, id uuid.UUID) (domain.Poll, error) {
		return tallyPoll(id, 1, 1), nil
	}

	req := httptest.NewRequest(http.MethodGet, "/polls/"+pollID.String(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.PollResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Choices, 2)
	assert.Equal(t, 2, body.TotalVotes)
	assert.Equal(t, 50.0, body.Choices[0].Percentage)
	assert.Equal(t, 50.0, body.Choices[1].Percentage)
}

func TestGetPoll_percentagesRoundToTwoDecimals(t *testing.T) {
	pollID := uuid.New()
	m, h := newTestServer(uuid.New())
	m.polls.getByID = func(_ context.Context, id uuid.UUID) (domain.Poll, error) {
		return tallyPoll(id, 1, 2), nil
	}

	req := httptest.NewRequest(http.MethodGet, "/polls/"+pollID.String(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.PollResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 33.33, body.Choices[0].Percentage)
	assert.Equal(t, 66.67, body.Choices[1].Percentage)
}

func TestGetPoll_missingReturns404(t *testing.T) {
	m, h := newTestServer(uuid.New())
	m.polls.getByID = func(_ context.Context, _ uuid.UUID) (domain.Poll, error) {
		return domain.Poll{}, domain.ErrNotFound
	}

	req := httptest.NewRequest(http.MethodGet, "/polls/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "poll not found")
}

func TestCreatePoll_returns201AndSetsCreator(t *testing.T) {
	userID := uuid.New()
	m, h := newTestServer(userID)

	var got domain.Poll
	m.polls.create = func(_ context.Context, poll domain.Poll) (domain.Poll, error) {
		got = poll
		poll.ID = uuid.New()
		for i := range poll.Choices {
			poll.Choices[i].ID = uuid.New()
		}
		return poll, nil
	}

	dept := uuid.New()
	payload := `{
		"title": "Where should we stay?",
		"expiry": "2030-06-01T12:00:00Z",
		"departments": ["` + dept.String() + `"],
		"choices": [{"text": "Cabin"}, {"text": "Hotel"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/polls", jsonBody(payload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	// The creator comes from the token, never from the body.
	assert.Equal(t, userID, got.CreatedBy)
	require.Len(t, got.Choices, 2)
	assert.Equal(t, "Cabin", got.Choices[0].Text)

	var body handler.PollResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEqual(t, uuid.Nil, body.ID)
	assert.Equal(t, 0, body.TotalVotes)
}

func TestCreatePoll_validationFailureReturns422(t *testing.T) {
	m, h := newTestServer(uuid.New())
	m.polls.create = func(_ context.Context, _ domain.Poll) (domain.Poll, error) {
		return domain.Poll{}, domain.ErrValidation
	}

	req := httptest.NewRequest(http.MethodPost, "/polls", jsonBody(`{"title": ""}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestUpdatePoll_mapsChoiceEdits(t *testing.T) {
	userID := uuid.New()
	m, h := newTestServer(userID)

	keepID := uuid.New()
	var gotChoices []domain.ChoiceUpdate
	m.polls.update = func(_ context.Context, actingUser uuid.UUID, poll domain.Poll, choices []domain.ChoiceUpdate) (domain.Poll, error) {
		assert.Equal(t, userID, actingUser)
		gotChoices = choices
		return tallyPoll(poll.ID, 0, 0), nil
	}

	payload := `{
		"title": "Where should we stay?",
		"expiry": "2030-06-01T12:00:00Z",
		"departments": ["` + uuid.NewString() + `"],
		"choices": [{"id": "` + keepID.String() + `", "text": "Lodge"}, {"text": "Hostel"}]
	}`
	req := httptest.NewRequest(http.MethodPut, "/polls/"+uuid.NewString(), jsonBody(payload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, gotChoices, 2)
	// An id means replace that choice's text; no id means append a new choice.
	require.NotNil(t, gotChoices[0].ID)
	assert.Equal(t, keepID, *gotChoices[0].ID)
	assert.Equal(t, "Lodge", gotChoices[0].Text)
	assert.Nil(t, gotChoices[1].ID)
	assert.Equal(t, "Hostel", gotChoices[1].Text)
}

func TestUpdatePoll_nonCreatorReturns403(t *testing.T) {
	m, h := newTestServer(uuid.New())
	m.polls.update = func(_ context.Context, _ uuid.UUID, _ domain.Poll, _ []domain.ChoiceUpdate) (domain.Poll, error) {
		return domain.Poll{}, domain.ErrNotAuthorized
	}

	payload := `{"title": "x", "expiry": "2030-06-01T12:00:00Z", "choices": [{"text": "a"}]}`
	req := httptest.NewRequest(http.MethodPut, "/polls/"+uuid.NewString(), jsonBody(payload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_authorized")
}

func TestDeletePoll_returns204(t *testing.T) {
	userID := uuid.New()
	m, h := newTestServer(userID)

	pollID := uuid.New()
	m.polls.delete = func(_ context.Context, actingUser, id uuid.UUID) error {
		assert.Equal(t, userID, actingUser)
		assert.Equal(t, pollID, id)
		return nil
	}

	req := httptest.NewRequest(http.MethodDelete, "/polls/"+pollID.String(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeletePoll_missingReturns404(t *testing.T) {
	m, h := newTestServer(uuid.New())
	m.polls.delete = func(_ context.Context, _, _ uuid.UUID) error {
		return domain.ErrNotFound
	}

	req := httptest.NewRequest(http.MethodDelete, "/polls/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
