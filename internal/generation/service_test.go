package generation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"kaimenu/internal/catalog"
	"kaimenu/internal/menu"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClient replays canned answers and records every prompt.
type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	answers []string
	err     error
}

func (f *fakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return `{"menus": []}`, nil
	}
	answer := f.answers[0]
	if len(f.answers) > 1 {
		f.answers = f.answers[1:]
	}
	return answer, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeArchive struct {
	docs map[uuid.UUID][]byte
	err  error
}

func (a *fakeArchive) Archive(ctx context.Context, id uuid.UUID, doc []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if a.docs == nil {
		a.docs = map[uuid.UUID][]byte{}
	}
	a.docs[id] = doc
	return "generations/" + id.String() + ".json", nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixtureCatalog(t *testing.T) *catalog.Service {
	t.Helper()
	repo := catalog.NewInMemoryRepository(
		catalog.Ingredient{Name: "Rice", PricePer100g: d("0.50"), EnergyKJ: d("1500"), Dietaries: []string{"Vegan"}},
		catalog.Ingredient{Name: "Chicken Breast", PricePer100g: d("1.20"), EnergyKJ: d("1100")},
		catalog.Ingredient{Name: "Broccoli", PricePer100g: d("0.60"), EnergyKJ: d("141"), Dietaries: []string{"Vegan"}},
		catalog.Ingredient{Name: "Carrot", PricePer100g: d("0.40"), EnergyKJ: d("170"), Dietaries: []string{"Vegan"}},
		catalog.Ingredient{Name: "Olive Oil", PricePer100g: d("1.25"), EnergyKJ: d("3700"), Dietaries: []string{"Vegan"}},
	)
	return catalog.NewService(repo, zaptest.NewLogger(t))
}

const oneGoodOneBad = "```json\n" + `{
  "menus": [
    {
      "meal_name": "Teriyaki Chicken Bowl",
      "description": "Sticky chicken, fluffy rice, crunchy greens.",
      "dietary": "Standard",
      "items": [
        {"name": "Rice", "quantity_g": 120},
        {"name": "Chicken Breast", "quantity_g": 120},
        {"name": "Broccoli", "quantity_g": 50},
        {"name": "Carrot", "quantity_g": 40},
        {"name": "Olive Oil", "quantity_g": 10}
      ]
    },
    {
      "meal_name": "Tiny Rice Box",
      "description": "Just rice.",
      "dietary": "Standard",
      "items": [{"name": "Rice", "quantity_g": 100}]
    }
  ]
}` + "\n```"

func twoMenus() menu.Constraints {
	c := menu.DefaultConstraints()
	c.BatchSize = 2
	return c
}

func TestRun_ValidatesBatch(t *testing.T) {
	client := &fakeClient{answers: []string{oneGoodOneBad}}
	svc := NewService(fixtureCatalog(t), client, zaptest.NewLogger(t))

	cycle, err := svc.Run(context.Background(), twoMenus())
	require.NoError(t, err)

	assert.Equal(t, StateValidated, cycle.State)
	assert.Equal(t, []State{
		StateIdle,
		StateRendered,
		StateAwaitingResponse,
		StateReceivedCandidates,
		StateValidated,
	}, cycle.History)
	assert.NoError(t, cycle.Err())

	require.Len(t, cycle.Accepted, 1)
	assert.Equal(t, "Teriyaki Chicken Bowl", cycle.Accepted[0].Menu.Name)
	assert.True(t, cycle.Accepted[0].Verdict.Totals.Cost.Equal(d("2.62")))

	require.Len(t, cycle.Rejected, 1)
	assert.Equal(t, "total_g=100 not in [200,350]", cycle.Rejected[0].Verdict.Reason)

	require.Equal(t, 1, client.calls())
	assert.Contains(t, client.prompts[0], "Produce exactly 2 menus")
	assert.Contains(t, client.prompts[0], "Broccoli, 0.60, 141\nCarrot, 0.40, 170")
}

func TestRun_CollaboratorUnavailable(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	svc := NewService(fixtureCatalog(t), client, zaptest.NewLogger(t))

	cycle, err := svc.Run(context.Background(), twoMenus())

	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	assert.Equal(t, StateFailed, cycle.State)
	assert.Equal(t, []State{StateIdle, StateRendered, StateAwaitingResponse, StateFailed}, cycle.History)
	assert.Contains(t, cycle.Error, "connection refused")
}

func TestRun_MalformedResponse(t *testing.T) {
	client := &fakeClient{answers: []string{"I could not find any menus, sorry."}}
	svc := NewService(fixtureCatalog(t), client, zaptest.NewLogger(t))

	cycle, err := svc.Run(context.Background(), twoMenus())

	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, StateFailed, cycle.State)
	assert.Equal(t, "I could not find any menus, sorry.", cycle.RawResponse)
}

func TestRun_EmptyCatalogFailsBeforeCall(t *testing.T) {
	client := &fakeClient{}
	svc := NewService(fixtureCatalog(t), client, zaptest.NewLogger(t))

	cons := twoMenus()
	cons.Dietary = "Halal"

	cycle, err := svc.Run(context.Background(), cons)

	assert.ErrorIs(t, err, ErrEmptyCatalog)
	assert.Equal(t, []State{StateIdle, StateRendered, StateFailed}, cycle.History)
	assert.NotEmpty(t, cycle.Request.Prompt)
	assert.Zero(t, client.calls())
}

func TestRun_StoreDownIsEmptyCatalog(t *testing.T) {
	repo := catalog.NewInMemoryRepository().FailWith(errors.New("db down"))
	svc := NewService(catalog.NewService(repo, zaptest.NewLogger(t)), &fakeClient{}, zaptest.NewLogger(t))

	_, err := svc.Run(context.Background(), twoMenus())
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestRun_InvalidConstraints(t *testing.T) {
	client := &fakeClient{}
	svc := NewService(fixtureCatalog(t), client, zaptest.NewLogger(t))

	cons := twoMenus()
	cons.ItemsMax = 1

	cycle, err := svc.Run(context.Background(), cons)

	assert.ErrorIs(t, err, menu.ErrInvalidConstraints)
	assert.Equal(t, StateFailed, cycle.State)
	assert.Zero(t, client.calls())
}

func TestRefine_FeedsBackRejections(t *testing.T) {
	client := &fakeClient{answers: []string{oneGoodOneBad}}
	svc := NewService(fixtureCatalog(t), client, zaptest.NewLogger(t))

	first, err := svc.Run(context.Background(), twoMenus())
	require.NoError(t, err)

	second, err := svc.Refine(context.Background(), first)
	require.NoError(t, err)

	require.Equal(t, 2, client.calls())
	assert.Contains(t, client.prompts[1], "### Rejected Last Round")
	assert.Contains(t, client.prompts[1], "- Tiny Rice Box: total_g=100 not in [200,350]")
	require.NotNil(t, second.ParentID)
	assert.Equal(t, first.ID, *second.ParentID)
	assert.Equal(t, first.Request.Constraints, second.Request.Constraints)
}

func TestRefine_Preconditions(t *testing.T) {
	svc := NewService(fixtureCatalog(t), &fakeClient{}, zaptest.NewLogger(t))

	clean, err := svc.Run(context.Background(), twoMenus())
	require.NoError(t, err)

	_, err = svc.Refine(context.Background(), clean)
	assert.ErrorIs(t, err, ErrNothingToRefine)

	failed := newCycle()
	_ = failed.fail(errors.New("boom"))
	_, err = svc.Refine(context.Background(), failed)
	assert.Error(t, err)
}

func TestRun_ArchivesTranscript(t *testing.T) {
	archive := &fakeArchive{}
	svc := NewService(fixtureCatalog(t), &fakeClient{answers: []string{oneGoodOneBad}}, zaptest.NewLogger(t), WithArchive(archive))

	cycle, err := svc.Run(context.Background(), twoMenus())
	require.NoError(t, err)

	assert.Equal(t, "generations/"+cycle.ID.String()+".json", cycle.ArchiveKey)

	var doc struct {
		State       string `json:"state"`
		RawResponse string `json:"raw_response"`
		Request     struct {
			Prompt string `json:"prompt"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal(archive.docs[cycle.ID], &doc))
	assert.Equal(t, "validated", doc.State)
	assert.Equal(t, oneGoodOneBad, doc.RawResponse)
	assert.Contains(t, doc.Request.Prompt, "### Hard Constraints")
}

func TestRun_ArchiveFailureIsNotFatal(t *testing.T) {
	archive := &fakeArchive{err: errors.New("bucket gone")}
	svc := NewService(fixtureCatalog(t), &fakeClient{answers: []string{oneGoodOneBad}}, zaptest.NewLogger(t), WithArchive(archive))

	cycle, err := svc.Run(context.Background(), twoMenus())
	require.NoError(t, err)
	assert.Equal(t, StateValidated, cycle.State)
	assert.Empty(t, cycle.ArchiveKey)
}

func TestRun_ConcurrentCycles(t *testing.T) {
	client := &fakeClient{answers: []string{oneGoodOneBad}}
	svc := NewService(fixtureCatalog(t), client, zaptest.NewLogger(t))

	const n = 8
	var wg sync.WaitGroup
	results := make([]*Cycle, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = svc.Run(context.Background(), twoMenus())
		}()
	}
	wg.Wait()

	seen := map[uuid.UUID]bool{}
	for _, c := range results {
		require.NotNil(t, c)
		assert.Equal(t, StateValidated, c.State)
		assert.Len(t, c.Accepted, 1)
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
	}
}

func TestCycle_IllegalTransitionPanics(t *testing.T) {
	c := newCycle()
	assert.Panics(t, func() { c.advance(StateValidated) })
}
