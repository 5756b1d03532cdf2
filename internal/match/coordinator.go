package match

import (
	"log"
	"sync"
	"time"

	"github.com/teris-io/shortid"

	"github.com/Pathfinder132/SkillSwap/internal/backend"
	"github.com/Pathfinder132/SkillSwap/internal/realtime"
	"github.com/Pathfinder132/SkillSwap/internal/stats"
	"github.com/Pathfinder132/SkillSwap/internal/types"
)

// Notifier receives the single user-visible outcome of a search. Each
// submitted request produces exactly one call.
type Notifier interface {
	NotifyOutcome(outcome types.MatchOutcome)
}

// Coordinator submits a skill-match request and discovers its outcome
// over two racing paths: a realtime subscription to match inserts and
// a bounded existence poll on the request row. Whichever path reaches
// a terminal state first wins; the other observes it and stays quiet.
type Coordinator struct {
	log          *log.Logger
	db           backend.Store
	feed         realtime.Feed
	stats        stats.StatsProvider
	notifier     Notifier
	userId       int
	skills       map[string]struct{}
	pollInterval time.Duration
	searchWindow time.Duration

	mu        sync.Mutex
	state     types.MatchState
	searching bool
	requestId int
	cancel    chan struct{}
	idle      chan struct{}
}

func NewCoordinator(logger *log.Logger, db backend.Store, feed realtime.Feed, statsProvider stats.StatsProvider,
	notifier Notifier, userId int, skills []string, pollInterval, searchWindow time.Duration) *Coordinator {
	known := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		known[s] = struct{}{}
	}

	return &Coordinator{
		log:          logger,
		db:           db,
		feed:         feed,
		stats:        statsProvider,
		notifier:     notifier,
		userId:       userId,
		skills:       known,
		pollInterval: pollInterval,
		searchWindow: searchWindow,
	}
}

// Searching reports whether a search is in flight.
func (c *Coordinator) Searching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searching
}

// State returns the current request's state. Before any request it is
// MatchPending only in name; callers should check Searching first.
func (c *Coordinator) State() types.MatchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestId returns the id of the most recently created request row,
// the disambiguation key for the poll path.
func (c *Coordinator) RequestId() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestId
}

// Request submits a match request for skill and starts the search.
func (c *Coordinator) Request(skill string) error {
	if skill == "" {
		return types.NewValidationError("no skill selected")
	}
	if _, ok := c.skills[skill]; !ok {
		return types.NewValidationError("unknown skill: " + skill)
	}

	// claim the search slot before the backend round-trip: a second
	// Request issued while this one is still submitting must be
	// rejected, not start a competing search
	c.mu.Lock()
	if c.searching {
		c.mu.Unlock()
		return types.NewValidationError("a match search is already in progress")
	}
	c.searching = true
	c.mu.Unlock()

	externalId, err := shortid.Generate()
	if err != nil {
		c.releaseSlot()
		return types.NewSubmissionError(err)
	}

	req, err := c.db.CreateMatchRequest(backend.CreateMatchRequestParams{
		ExternalId: externalId,
		UserId:     c.userId,
		Skill:      skill,
	})
	if err != nil {
		c.releaseSlot()
		return types.NewSubmissionError(err)
	}

	// Subscribe before the first poll tick so a match created between
	// now and then still reaches the push path. The feed is unfiltered
	// on purpose: participant checks happen against each record.
	sub, err := c.feed.Subscribe(realtime.TableMatches, nil)
	if err != nil {
		// the poll path alone still converges, just without names
		c.log.Println("match push subscription failed, falling back to polling:", err)
	}

	c.mu.Lock()
	c.state = types.MatchPending
	c.requestId = req.Id
	c.cancel = make(chan struct{})
	c.idle = make(chan struct{})
	cancel, idle := c.cancel, c.idle
	c.mu.Unlock()

	go c.search(req.Id, sub, cancel, idle)

	return nil
}

// releaseSlot undoes the search claim after a failed submission.
func (c *Coordinator) releaseSlot() {
	c.mu.Lock()
	c.searching = false
	c.mu.Unlock()
}

// search runs both discovery paths in one goroutine so their
// interleaving is fully ordered: the push channel is always drained
// before a poll tick is acted on.
func (c *Coordinator) search(requestId int, sub *realtime.Subscription, cancel <-chan struct{}, idle chan<- struct{}) {
	defer func() {
		if sub != nil {
			sub.Close()
		}
		c.mu.Lock()
		// only this search's own slot is released; a newer request may
		// already hold it
		if c.requestId == requestId {
			c.searching = false
		}
		c.mu.Unlock()
		close(idle)
	}()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	maxTicks := int(c.searchWindow / c.pollInterval)
	ticks := 0

	var events <-chan realtime.ChangeEvent
	if sub != nil {
		events = sub.Events()
	}

	for {
		select {
		case <-cancel:
			return
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if c.handlePush(requestId, e) {
				return
			}
		case <-ticker.C:
			// push takes priority: drain anything already delivered
			// before trusting the poll's view of the world
			if c.drainPush(requestId, events) {
				return
			}

			ticks++
			if c.handlePoll(requestId, ticks, maxTicks) {
				return
			}
		}
	}
}

func (c *Coordinator) drainPush(requestId int, events <-chan realtime.ChangeEvent) bool {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return false
			}
			if c.handlePush(requestId, e) {
				return true
			}
		default:
			return false
		}
	}
}

// handlePush processes one match-insert event. It reports true when
// the search reached a terminal state.
func (c *Coordinator) handlePush(requestId int, e realtime.ChangeEvent) bool {
	rec, err := realtime.DecodeMatch(e)
	if err != nil {
		c.log.Println("discarding malformed match event:", err)
		return false
	}

	if !rec.HasUser(c.userId) {
		return false
	}

	if !c.finish(requestId, types.MatchMatched) {
		return true
	}

	outcome := types.MatchOutcome{
		State:          types.MatchMatched,
		ConversationId: rec.Id,
	}

	peer, err := c.db.GetAccountById(rec.OtherUserId(c.userId))
	if err != nil {
		// the match stands either way; the name is presentation only
		c.log.Println("resolve match peer:", err)
	} else {
		outcome.PeerUsername = peer.Username
	}

	c.notifier.NotifyOutcome(outcome)
	return true
}

// handlePoll checks whether the request row still exists. It reports
// true when the search reached a terminal state.
func (c *Coordinator) handlePoll(requestId, ticks, maxTicks int) bool {
	exists, err := c.db.MatchRequestExists(requestId)
	if err != nil {
		// transient: the next tick retries, but the tick still counts
		// toward the window so a failing backend cannot keep the search
		// alive past its ceiling
		c.log.Println("match request poll:", err)
	} else if !exists {
		// the row vanished without a push event naming us: the backend
		// paired the request into an already-existing conversation
		if c.finish(requestId, types.MatchSuperseded) {
			c.notifier.NotifyOutcome(types.MatchOutcome{State: types.MatchSuperseded})
		}
		return true
	}

	if ticks >= maxTicks {
		// the row is left in place: the backend may still pair it after
		// the client stops watching, surfacing as a conversation later
		if c.finish(requestId, types.MatchExhausted) {
			c.notifier.NotifyOutcome(types.MatchOutcome{State: types.MatchExhausted})
		}
		return true
	}

	return false
}

// finish attempts the terminal transition for requestId. It returns
// false if another path already terminated the search, in which case
// the caller must not notify.
func (c *Coordinator) finish(requestId int, state types.MatchState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.requestId != requestId || c.state.Terminal() {
		return false
	}

	c.state = state
	if c.stats != nil {
		c.stats.Incr(stats.MatchOutcomes)
	}
	c.log.Printf("match request %d finished: %s", requestId, state)

	return true
}

// withdraw removes a cancelled request row so it cannot be paired
// while nobody is watching for the outcome.
func (c *Coordinator) withdraw(requestId int) {
	if err := c.db.DeleteMatchRequest(requestId); err != nil {
		c.log.Printf("withdraw match request %d: %v", requestId, err)
	}
}

// Cancel stops an in-flight search without an outcome notification,
// for session teardown. It blocks until the search goroutine exits,
// then withdraws the still-pending request row.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	cancel, idle := c.cancel, c.idle
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}

	close(cancel)
	<-idle

	c.mu.Lock()
	requestId, state := c.requestId, c.state
	c.mu.Unlock()

	if requestId != 0 && !state.Terminal() {
		c.withdraw(requestId)
	}
}
