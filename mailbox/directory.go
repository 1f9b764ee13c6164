package mailbox

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"
	"time"
)

var _ contract.IMailboxDirectory = (*Directory)(nil)

// Directory resolves a user id to its mailbox.
type Directory struct {
	mu        sync.RWMutex
	mailboxes map[domain.UserID]*Mailbox
	capacity  int
	timeout   time.Duration
}

func NewDirectory(capacity int, timeout time.Duration) *Directory {
	return &Directory{
		mailboxes: make(map[domain.UserID]*Mailbox),
		capacity:  capacity,
		timeout:   timeout,
	}
}

// Open returns the mailbox of the user, creating it on first use.
func (d *Directory) Open(user domain.UserID) *Mailbox {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mb, ok := d.mailboxes[user]; ok {
		return mb
	}
	mb := New(user, d.capacity, d.timeout)
	d.mailboxes[user] = mb
	return mb
}

func (d *Directory) Get(user domain.UserID) (contract.IMailbox, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	mb, ok := d.mailboxes[user]
	if !ok {
		return nil, false
	}
	return mb, true
}

// Remove closes the mailbox and forgets it.
func (d *Directory) Remove(user domain.UserID) {
	d.mu.Lock()
	mb, ok := d.mailboxes[user]
	delete(d.mailboxes, user)
	d.mu.Unlock()
	if ok {
		mb.Close()
	}
}

// Depths returns the number of pending entries of every mailbox.
func (d *Directory) Depths() map[domain.UserID]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	depths := make(map[domain.UserID]int, len(d.mailboxes))
	for user, mb := range d.mailboxes {
		depths[user] = mb.Len()
	}
	return depths
}
