package dispatcher

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benvon/smart-planner/internal/conversation"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/ai/aitest"
	"github.com/benvon/smart-planner/internal/services/classifier"
	"github.com/benvon/smart-planner/internal/services/synthesis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const scenarioTimeline = `{
  "activities": [
    {"title": "Kahvaltı", "description": "Kahvaltı açıklaması", "start_time": "08:30", "end_time": "09:30", "category": "breakfast", "mood": "energetic",
     "budget": {"min": 80, "max": 150}},
    {"title": "Sabah koşusu", "description": "Sabah koşusu açıklaması", "start_time": "10:00", "end_time": "11:00", "category": "sport",
     "location": {"name": "Maçka Parkı", "lat": 41.045, "lng": 28.993}},
    {"title": "Öğle yemeği", "description": "Öğle yemeği açıklaması", "start_time": "12:30", "end_time": "13:30", "category": "social",
     "budget": {"min": 150, "max": 300}, "discount": {"percentage": 10, "description": "öğle menüsü"}}
  ],
  "mood_analysis": {"primary": "energetic", "secondary": "happy", "recommendations": ["Su içmeyi unutma"]}
}`

type staticPreferences struct {
	prefs models.UserPreferences
}

func (s staticPreferences) Get(_ context.Context, userID uuid.UUID) models.UserPreferences {
	p := s.prefs
	p.UserID = userID
	return p
}

type noDiscounts struct{}

func (noDiscounts) ListActive(context.Context, *string, time.Time) ([]models.Discount, error) {
	return []models.Discount{}, nil
}

// engine wires the real classifier and synthesizers around a scripted generator.
func engine(gen ai.TextGenerator, store conversation.Store, locker conversation.Locker) *Dispatcher {
	log := zap.NewNop()
	return New(Dependencies{
		Store:           store,
		Locker:          locker,
		Classifier:      classifier.New(gen, log),
		Timeline:        synthesis.NewTimelineSynthesizer(gen, nil, synthesis.Config{}, log, nil),
		Recommendations: synthesis.NewRecommendationSynthesizer(gen, nil, log, nil),
		Discounts:       synthesis.NewDiscountResponder(gen, noDiscounts{}, synthesis.Config{}, log, nil),
		Chat:            synthesis.NewChatResponder(gen, log),
		Logger:          log,
	})
}

func TestScenarioTimelineRequest(t *testing.T) {
	t.Parallel()

	prefs := models.DefaultPreferences(uuid.Nil)
	prefs.BudgetRange = models.BudgetRange{Min: 100, Max: 500}
	prefs.Interests = []string{"yemek", "spor"}
	store := conversation.NewMemoryStore(staticPreferences{prefs: prefs}, conversation.Options{})

	gen := aitest.ByOperation(map[string]aitest.Response{
		ai.OpClassifyIntent: {Text: `{"type":"timeline_request","category":null,"confidence":0.95}`},
		ai.OpClassifyMood:   {Text: `{"mood":"energetic"}`},
		ai.OpTimeline:       {Text: scenarioTimeline},
	})

	resp, err := engine(gen, store, conversation.NewMemoryLocker()).
		ProcessMessage(context.Background(), Request{UserID: uuid.New(), Text: "bugün için program öner"})
	require.NoError(t, err)

	assert.True(t, resp.HasAction(ActionShowTimeline))
	require.NotNil(t, resp.Timeline)
	assert.GreaterOrEqual(t, len(resp.Timeline.Activities), 2)
	assert.Equal(t, models.MoodEnergetic, resp.Mood)
	assert.Equal(t, 450.0, resp.Timeline.TotalBudget)
	assert.Equal(t, 30.0, resp.Timeline.EstimatedSavings)

	prompt := gen.CallsFor(ai.OpTimeline)[0].Prompt
	assert.Contains(t, prompt, "100-500")
	assert.Contains(t, prompt, "yemek, spor")
	assert.Contains(t, prompt, "energetic")
}

func TestScenarioUnparseableRecommendations(t *testing.T) {
	t.Parallel()

	store := conversation.NewMemoryStore(nil, conversation.Options{})
	gen := aitest.ByOperation(map[string]aitest.Response{
		ai.OpClassifyIntent:  {Text: `{"type":"recommendation_request","category":"restaurant","confidence":0.88}`},
		ai.OpClassifyMood:    {Text: `{"mood":"happy"}`},
		ai.OpRecommendations: {Text: "Elbette! Size harika restoranlar önerebilirim ama şu an liste veremiyorum."},
	})

	resp, err := engine(gen, store, conversation.NewMemoryLocker()).
		ProcessMessage(context.Background(), Request{UserID: uuid.New(), Text: "restoran öner", SessionID: "r"})
	require.NoError(t, err)

	assert.Empty(t, resp.Recommendations)
	assert.NotEmpty(t, resp.ResponseText)
	assert.NotEqual(t, ApologyText, resp.ResponseText)
	assert.False(t, resp.HasAction(ActionShowRecommendations))

	calls := gen.CallsFor(ai.OpRecommendations)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "restaurant")
}

type gatedChat struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

// Respond blocks the reply to "A" until release is closed.
func (g *gatedChat) Respond(_ context.Context, history []models.Message) (string, error) {
	last := history[len(history)-1].Text
	if last == "A" {
		g.once.Do(func() { close(g.started) })
		<-g.release
	}
	return "reply-to-" + last, nil
}

func TestScenarioConcurrentSameSession(t *testing.T) {
	t.Parallel()

	backends := []struct {
		name string
		// instances returns two dispatchers sharing one session backend.
		instances func(t *testing.T, chat ChatResponder) (*Dispatcher, *Dispatcher, conversation.Store)
	}{
		{
			name: "memory",
			instances: func(t *testing.T, chat ChatResponder) (*Dispatcher, *Dispatcher, conversation.Store) {
				store := conversation.NewMemoryStore(nil, conversation.Options{})
				deps := baseDeps(store)
				deps.Chat = chat
				d := New(deps)
				return d, d, store
			},
		},
		{
			name: "redis across instances",
			instances: func(t *testing.T, chat ChatResponder) (*Dispatcher, *Dispatcher, conversation.Store) {
				mr := miniredis.RunT(t)
				newInstance := func() (*Dispatcher, conversation.Store) {
					client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
					t.Cleanup(func() { _ = client.Close() })
					store := conversation.NewRedisStore(client, nil, conversation.Options{})
					deps := baseDeps(store)
					deps.Locker = conversation.NewRedisLocker(client, time.Minute)
					deps.Chat = chat
					return New(deps), store
				}
				a, store := newInstance()
				b, _ := newInstance()
				return a, b, store
			},
		},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			chat := &gatedChat{started: make(chan struct{}), release: make(chan struct{})}
			first, second, store := b.instances(t, chat)
			userID := uuid.New()

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := first.ProcessMessage(context.Background(), Request{UserID: userID, Text: "A", SessionID: "shared"})
				assert.NoError(t, err)
			}()

			select {
			case <-chat.started:
			case <-time.After(5 * time.Second):
				t.Fatal("first turn never reached the responder")
			}
			go func() {
				defer wg.Done()
				_, err := second.ProcessMessage(context.Background(), Request{UserID: userID, Text: "B", SessionID: "shared"})
				assert.NoError(t, err)
			}()

			// Give B time to contend for the session before A finishes.
			time.Sleep(100 * time.Millisecond)
			close(chat.release)
			wg.Wait()

			conv, err := store.Get(context.Background(), "shared")
			require.NoError(t, err)
			got := make([]string, 0, len(conv.Messages))
			for _, m := range conv.Messages {
				got = append(got, string(m.Role)+":"+m.Text)
			}
			assert.Equal(t, []string{"user:A", "assistant:reply-to-A", "user:B", "assistant:reply-to-B"}, got,
				"turns interleaved: %s", strings.Join(got, " | "))
		})
	}
}

func TestScenarioSlowTurnOutlivesLockLease(t *testing.T) {
	t.Parallel()

	const lease = 300 * time.Millisecond
	mr := miniredis.RunT(t)
	chat := &gatedChat{started: make(chan struct{}), release: make(chan struct{})}

	var store conversation.Store
	newInstance := func() *Dispatcher {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		store = conversation.NewRedisStore(client, nil, conversation.Options{})
		deps := baseDeps(store)
		deps.Locker = conversation.NewRedisLocker(client, lease)
		deps.Chat = chat
		return New(deps)
	}
	first, second := newInstance(), newInstance()
	userID := uuid.New()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := first.ProcessMessage(context.Background(), Request{UserID: userID, Text: "A", SessionID: "slow"})
		assert.NoError(t, err)
	}()
	select {
	case <-chat.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first turn never reached the responder")
	}
	go func() {
		defer wg.Done()
		_, err := second.ProcessMessage(context.Background(), Request{UserID: userID, Text: "B", SessionID: "slow"})
		assert.NoError(t, err)
	}()

	// The first reply takes several leases; the holder must keep renewing.
	lockKey := "planner:lock:session:slow"
	for range 5 {
		mr.FastForward(200 * time.Millisecond)
		require.True(t, mr.Exists(lockKey), "lock lease expired during a running turn")
		require.Eventually(t, func() bool { return mr.TTL(lockKey) > 200*time.Millisecond },
			2*time.Second, 10*time.Millisecond)
	}
	close(chat.release)
	wg.Wait()

	conv, err := store.Get(context.Background(), "slow")
	require.NoError(t, err)
	got := make([]string, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		got = append(got, string(m.Role)+":"+m.Text)
	}
	assert.Equal(t, []string{"user:A", "assistant:reply-to-A", "user:B", "assistant:reply-to-B"}, got,
		"turns interleaved: %s", strings.Join(got, " | "))
}
