package collab

import (
	"slices"
	"time"
)

// tracks who is in a session, in join order
// not safe for concurrent use, the owning session serializes access
type Presence struct {
	participants map[string]*Participant
	order        []string
}

func NewPresence() *Presence {
	return &Presence{
		participants: make(map[string]*Participant),
	}
}

// adds a participant and returns the one it superseded, if any
func (p *Presence) Join(part *Participant, policy JoinPolicy) (*Participant, error) {
	prev, exists := p.participants[part.UserID]

	if exists {
		if policy == JoinReject {
			return nil, ErrDuplicateParticipant
		}

		p.removeFromOrder(part.UserID)
	}

	if part.LastActive.IsZero() {
		part.LastActive = part.JoinedAt
	}

	p.participants[part.UserID] = part
	p.order = append(p.order, part.UserID)

	return prev, nil
}

// overwrites the participant's cursor, last write wins
func (p *Presence) UpdateCursor(userID string, pos Position, now time.Time) error {
	part, exists := p.participants[userID]
	if !exists {
		return ErrUnknownParticipant
	}

	part.Cursor = &pos
	part.LastActive = now

	return nil
}

// removes a participant, leaving twice is a no-op
func (p *Presence) Leave(userID string) (*Participant, bool) {
	part, exists := p.participants[userID]
	if !exists {
		return nil, false
	}

	delete(p.participants, userID)
	p.removeFromOrder(userID)

	return part, true
}

// returns copies of the participants ordered by join time
func (p *Presence) List() []Participant {
	list := make([]Participant, 0, len(p.order))

	for _, userID := range p.order {
		list = append(list, p.participants[userID].public())
	}

	return list
}

// returns the live participant record
func (p *Presence) Get(userID string) (*Participant, bool) {
	part, exists := p.participants[userID]
	return part, exists
}

// refreshes a participant's activity timestamp
func (p *Presence) Touch(userID string, now time.Time) {
	if part, exists := p.participants[userID]; exists {
		part.LastActive = now
	}
}

// returns participants with no activity since cutoff
func (p *Presence) Idle(cutoff time.Time) []*Participant {
	var idle []*Participant

	for _, userID := range p.order {
		part := p.participants[userID]

		if part.LastActive.Before(cutoff) {
			idle = append(idle, part)
		}
	}

	return idle
}

// returns the connections of all participants in join order
func (p *Presence) conns() []Conn {
	conns := make([]Conn, 0, len(p.order))

	for _, userID := range p.order {
		if conn := p.participants[userID].conn; conn != nil {
			conns = append(conns, conn)
		}
	}

	return conns
}

func (p *Presence) Len() int {
	return len(p.order)
}

func (p *Presence) removeFromOrder(userID string) {
	if i := slices.Index(p.order, userID); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
}

// returns a detached copy safe to hand to other goroutines
func (part *Participant) public() Participant {
	cp := *part
	cp.conn = nil

	if part.Cursor != nil {
		cursor := *part.Cursor
		cp.Cursor = &cursor
	}

	return cp
}
