package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/nhle/mail-triage/internal/model"
)

// actionDelay is the pause after each mutation. Gmail rate-limits rapid
// sequences of STORE/COPY/EXPUNGE commands; this is a throttle, not an
// error-recovery mechanism.
const actionDelay = 100 * time.Millisecond

// ErrReadOnly is returned when a mutation is attempted without a prior
// read-write select. This is a caller bug, not a transient condition.
var ErrReadOnly = errors.New("mailbox not selected read-write")

// Options configures a mailbox session.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string

	// TrashFolder is the destination for the trash action, e.g.
	// "[Gmail]/Trash".
	TrashFolder string

	Logger *zap.Logger
}

// Session owns exactly one authenticated connection to an IMAP mail
// store. Listing and fetching are read-only; mutations require an
// explicit read-write SelectMailbox first. Sessions are not safe for
// concurrent use: one command is outstanding at a time.
type Session struct {
	client      *imapclient.Client
	trashFolder string
	logger      *zap.Logger

	selected string
	writable bool
}

// Dial connects to the mail store over TLS and authenticates.
// Authentication failure is fatal for the session; it is never retried.
func Dial(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(opts.Username, opts.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, fmt.Errorf("authenticating %s: %w", opts.Username, err)
	}

	logger.Debug("imap session established",
		zap.String("addr", addr),
		zap.String("user", opts.Username),
	)

	return &Session{
		client:      client,
		trashFolder: opts.TrashFolder,
		logger:      logger,
	}, nil
}

// Close logs out and tears down the connection. Teardown is best-effort:
// errors here are swallowed so they never mask an error already in
// flight.
func (s *Session) Close() {
	if s.client == nil {
		return
	}
	_ = s.client.Logout().Wait()
	_ = s.client.Close()
	s.client = nil
	s.selected = ""
	s.writable = false
}

// FetchRecent selects the mailbox read-only, searches for messages newer
// than daysBack days (optionally unseen only), drops any UID present in
// excludedUIDs, keeps the maxCount most recent candidates, and fetches
// each one. Per-message fetch failures skip that message; a read-only
// listing prefers partial results over an all-or-nothing failure.
func (s *Session) FetchRecent(
	ctx context.Context,
	mailbox string,
	daysBack int,
	maxCount int,
	unreadOnly bool,
	excludedUIDs map[uint32]struct{},
) ([]model.MessageSummary, error) {
	if err := s.selectMailbox(mailbox, true); err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{
		Since: time.Now().UTC().AddDate(0, 0, -daysBack),
	}
	if unreadOnly {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}

	searchData, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		// A rejected search reads as an empty mailbox, not a crash.
		s.logger.Warn("imap search failed", zap.String("mailbox", mailbox), zap.Error(err))
		return nil, nil
	}

	uids := selectRecent(searchData.AllUIDs(), excludedUIDs, maxCount)
	if len(uids) == 0 {
		return nil, nil
	}

	summaries := make([]model.MessageSummary, 0, len(uids))
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}

		summary, err := s.fetchOne(uid)
		if err != nil {
			s.logger.Debug("skipping unfetchable message",
				zap.Uint32("uid", uint32(uid)),
				zap.Error(err),
			)
			continue
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// fetchOne retrieves the full content and flags for a single UID.
func (s *Session) fetchOne(uid imap.UID) (model.MessageSummary, error) {
	// Peek keeps the read-only guarantee: fetching must never set \Seen.
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		UID:         true,
		Flags:       true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return model.MessageSummary{}, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return model.MessageSummary{}, fmt.Errorf("collecting UID %d: %w", uid, err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return model.MessageSummary{}, fmt.Errorf("UID %d: empty body section", uid)
	}

	summary := ParseMessage(uint32(uid), raw)
	summary.Flags = normalizeFlags(buf.Flags)

	if err := fetchCmd.Close(); err != nil {
		return model.MessageSummary{}, fmt.Errorf("fetching UID %d: %w", uid, err)
	}
	return summary, nil
}

// SelectMailbox opens the named mailbox in read-write mode. It must be
// called once before any sequence of mutations on that mailbox.
func (s *Session) SelectMailbox(mailbox string) error {
	return s.selectMailbox(mailbox, false)
}

func (s *Session) selectMailbox(mailbox string, readOnly bool) error {
	if _, err := s.client.Select(mailbox, &imap.SelectOptions{ReadOnly: readOnly}).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}
	s.selected = mailbox
	s.writable = !readOnly
	s.logger.Debug("mailbox selected",
		zap.String("mailbox", mailbox),
		zap.Bool("read_only", readOnly),
	)
	return nil
}

// ExecuteAction applies one mutation to the message identified by uid in
// the currently selected mailbox. Destructive actions run as copy, mark
// deleted, expunge; the intermediate protocol states are not observable
// through this boundary. Expunge invalidates the UID set of the selected
// mailbox, so callers must not re-fetch earlier UIDs after a destructive
// action in the same sequence.
func (s *Session) ExecuteAction(
	ctx context.Context,
	uid uint32,
	action model.ActionType,
	targetFolder string,
) error {
	if !s.writable {
		return fmt.Errorf("%s action on UID %d: %w", action, uid, ErrReadOnly)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))

	switch action {
	case model.ActionFlag:
		if err := s.storeFlags(uidSet, imap.FlagFlagged); err != nil {
			return fmt.Errorf("flagging UID %d: %w", uid, err)
		}

	case model.ActionTrash:
		if err := s.copyTo(uidSet, s.trashFolder); err != nil {
			return fmt.Errorf("copying UID %d to trash: %w", uid, err)
		}
		if err := s.deleteAndExpunge(uidSet); err != nil {
			return fmt.Errorf("trashing UID %d: %w", uid, err)
		}

	case model.ActionArchive:
		// No copy: the store keeps the message in its all-mail
		// equivalent; removing it here archives it.
		if err := s.deleteAndExpunge(uidSet); err != nil {
			return fmt.Errorf("archiving UID %d: %w", uid, err)
		}

	case model.ActionMove:
		if targetFolder == "" {
			return fmt.Errorf("moving UID %d: no target folder", uid)
		}
		if err := s.copyTo(uidSet, targetFolder); err != nil {
			return fmt.Errorf("copying UID %d to %s: %w", uid, targetFolder, err)
		}
		if err := s.deleteAndExpunge(uidSet); err != nil {
			return fmt.Errorf("moving UID %d: %w", uid, err)
		}

	default:
		return fmt.Errorf("action %q is not executable", action)
	}

	s.logger.Debug("action executed",
		zap.Uint32("uid", uid),
		zap.String("action", string(action)),
		zap.String("target", targetFolder),
	)

	// Throttle between mutations to respect provider rate limits.
	select {
	case <-time.After(actionDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Session) storeFlags(uidSet imap.UIDSet, flags ...imap.Flag) error {
	return s.client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  flags,
	}, nil).Close()
}

func (s *Session) copyTo(uidSet imap.UIDSet, folder string) error {
	_, err := s.client.Copy(uidSet, folder).Wait()
	return err
}

func (s *Session) deleteAndExpunge(uidSet imap.UIDSet) error {
	if err := s.storeFlags(uidSet, imap.FlagDeleted); err != nil {
		return err
	}
	return s.client.Expunge().Close()
}

// ListFolders returns all folder names known to the store, sorted
// lexicographically. A failed listing reads as empty.
func (s *Session) ListFolders() []string {
	listings, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		s.logger.Warn("imap list failed", zap.Error(err))
		return nil
	}
	return folderNames(listings)
}

// Check verifies the session is usable by selecting INBOX read-only.
func (s *Session) Check() error {
	return s.selectMailbox("INBOX", true)
}
