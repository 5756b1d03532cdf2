package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Pathfinder132/SkillSwap/internal/stats"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	eventQueueSize = 256
)

type clientFrame struct {
	Action string  `json:"action"`
	Ref    int     `json:"ref"`
	Table  string  `json:"table,omitempty"`
	Event  string  `json:"event,omitempty"`
	Filter *Filter `json:"filter,omitempty"`
}

type serverFrame struct {
	Ref    int             `json:"ref"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

// Conn is a websocket connection to the backend's change feed. It
// implements Feed; every Subscribe registers a ref with the server and
// routes matching frames to that subscription's channel.
type Conn struct {
	conn      *websocket.Conn
	log       *log.Logger
	stats     stats.StatsProvider
	send      chan []byte
	subs      map[int]*Subscription
	subsLock  sync.Mutex
	nextRef   int
	stop      chan struct{}
	done      chan struct{}
	closed    bool
	closeOnce sync.Once
}

func NewConn(url, accessToken string, logger *log.Logger, statsProvider stats.StatsProvider) (*Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)

	wsConn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("dial realtime endpoint: %w", err)
	}

	c := &Conn{
		conn:  wsConn,
		log:   logger,
		stats: statsProvider,
		send:  make(chan []byte, eventQueueSize),
		subs:  make(map[int]*Subscription),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go c.write()
	go c.read()

	return c, nil
}

func (c *Conn) Subscribe(table string, filter *Filter) (*Subscription, error) {
	c.subsLock.Lock()
	if c.closed {
		c.subsLock.Unlock()
		return nil, fmt.Errorf("realtime connection is closed")
	}

	c.nextRef++
	sub := &Subscription{
		ref:     c.nextRef,
		table:   table,
		filter:  filter,
		events:  make(chan ChangeEvent, eventQueueSize),
		release: c.unsubscribe,
	}
	c.subs[sub.ref] = sub
	c.subsLock.Unlock()

	frame, err := json.Marshal(clientFrame{
		Action: "subscribe",
		Ref:    sub.ref,
		Table:  table,
		Event:  "insert",
		Filter: filter,
	})
	if err != nil {
		c.unsubscribe(sub)
		return nil, fmt.Errorf("marshal subscribe frame: %w", err)
	}

	if !c.queueFrame(frame) {
		c.unsubscribe(sub)
		return nil, fmt.Errorf("send queue full, cannot subscribe to %q", table)
	}

	return sub, nil
}

func (c *Conn) unsubscribe(sub *Subscription) {
	c.subsLock.Lock()
	if _, ok := c.subs[sub.ref]; !ok {
		c.subsLock.Unlock()
		return
	}
	delete(c.subs, sub.ref)
	close(sub.events)
	closed := c.closed
	c.subsLock.Unlock()

	if closed {
		return
	}

	frame, err := json.Marshal(clientFrame{Action: "unsubscribe", Ref: sub.ref})
	if err != nil {
		c.log.Println("marshal unsubscribe frame:", err)
		return
	}
	c.queueFrame(frame)
}

func (c *Conn) queueFrame(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Println("failed to queue frame, send channel is full")
		return false
	}
}

func (c *Conn) write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("realtime write exiting")
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					c.log.Printf("realtime write: %v", err)
				}
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) read() {
	defer func() {
		c.conn.Close()
		c.closeAllSubs()
		close(c.done)
		c.log.Println("realtime read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("realtime read: %v", err)
			}
			return
		}

		var frame serverFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Println("error parsing realtime frame:", err)
			continue
		}

		c.dispatch(frame)
	}
}

func (c *Conn) dispatch(frame serverFrame) {
	c.subsLock.Lock()
	defer c.subsLock.Unlock()

	sub, ok := c.subs[frame.Ref]
	if !ok {
		// frame for a subscription closed after the server sent it
		return
	}

	select {
	case sub.events <- ChangeEvent{Table: frame.Table, Record: frame.Record}:
	default:
		c.log.Printf("dropping event for table %q, subscriber queue full", frame.Table)
		if c.stats != nil {
			c.stats.Incr(stats.RealtimeDroppedEvents)
		}
	}
}

func (c *Conn) closeAllSubs() {
	c.subsLock.Lock()
	defer c.subsLock.Unlock()

	c.closed = true
	for ref, sub := range c.subs {
		delete(c.subs, ref)
		close(sub.events)
	}
}

// Close tears down the connection and every open subscription. It is
// safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.conn.Close()
	})
	<-c.done
}
