// Package memory implements every repository interface over in-process maps.
// It backs the unit and scenario tests: one mutex plays the role of the
// database's row locks, and WithTransaction snapshots state so a failed
// transaction rolls back exactly like its Postgres counterpart.
package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Compile-time interface checks
var (
	_ repository.DBManager            = (*Store)(nil)
	_ repository.AccountRepository    = (*Store)(nil)
	_ repository.QuestionRepository   = (*Store)(nil)
	_ repository.TestRepository       = (*Store)(nil)
	_ repository.ContestRepository    = (*Store)(nil)
	_ repository.SubmissionRepository = (*Store)(nil)
)

// memTx marks calls made from inside WithTransaction, where the store lock is
// already held. Its pgx.Tx methods are never invoked.
type memTx struct {
	pgx.Tx
}

type contestEntry struct {
	id        int64
	contestID int64
	accountID int64
	createdAt time.Time
}

type data struct {
	accounts       map[int64]model.Account
	ledger         []model.LedgerEntry
	questions      map[int64]model.Question
	tests          map[int64]model.Test
	contests       map[int64]model.Contest
	contestEntries []contestEntry
	submissions    []model.Submission

	accountSeq    int64
	ledgerSeq     int64
	questionSeq   int64
	testSeq       int64
	contestSeq    int64
	entrySeq      int64
	submissionSeq int64
}

func (d *data) snapshot() data {
	cp := *d
	cp.accounts = make(map[int64]model.Account, len(d.accounts))
	for k, v := range d.accounts {
		cp.accounts[k] = v
	}
	cp.questions = make(map[int64]model.Question, len(d.questions))
	for k, v := range d.questions {
		cp.questions[k] = v
	}
	cp.tests = make(map[int64]model.Test, len(d.tests))
	for k, v := range d.tests {
		cp.tests[k] = v
	}
	cp.contests = make(map[int64]model.Contest, len(d.contests))
	for k, v := range d.contests {
		cp.contests[k] = v
	}
	cp.ledger = append([]model.LedgerEntry(nil), d.ledger...)
	cp.contestEntries = append([]contestEntry(nil), d.contestEntries...)
	cp.submissions = append([]model.Submission(nil), d.submissions...)
	return cp
}

type Store struct {
	mu  sync.Mutex
	d   data
	rng *rand.Rand
}

func NewStore() *Store {
	return &Store{
		d: data{
			accounts:  make(map[int64]model.Account),
			questions: make(map[int64]model.Question),
			tests:     make(map[int64]model.Test),
			contests:  make(map[int64]model.Contest),
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// acquire locks the store unless the call is already inside WithTransaction.
func (s *Store) acquire(tx ...pgx.Tx) func() {
	if len(tx) > 0 && tx[0] != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTransaction serializes against all other store operations and restores
// the pre-transaction state when fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.d.snapshot()
	if err := fn(memTx{}); err != nil {
		s.d = saved
		return err
	}
	return nil
}

// SeedAccount registers an account and returns its assigned id. Test setup
// only; account provisioning is the auth collaborator's job in production.
func (s *Store) SeedAccount(acc model.Account) model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.d.accountSeq++
	acc.ID = s.d.accountSeq
	if acc.Role == "" {
		acc.Role = model.RoleUser
	}
	now := time.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	s.d.accounts[acc.ID] = acc
	return acc
}

// ---- AccountRepository ----

func (s *Store) GetAccount(ctx context.Context, accountID int64, tx ...pgx.Tx) (*model.Account, error) {
	defer s.acquire(tx...)()

	acc, ok := s.d.accounts[accountID]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return &acc, nil
}

func (s *Store) GetAccountForUpdate(ctx context.Context, accountID int64, tx pgx.Tx) (*model.Account, error) {
	return s.GetAccount(ctx, accountID, tx)
}

func (s *Store) GetBalance(ctx context.Context, accountID int64, tx ...pgx.Tx) (decimal.Decimal, error) {
	defer s.acquire(tx...)()

	acc, ok := s.d.accounts[accountID]
	if !ok {
		return decimal.Zero, model.ErrAccountNotFound
	}
	return acc.Balance, nil
}

func (s *Store) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal, tx pgx.Tx) error {
	defer s.acquire(tx)()

	acc, ok := s.d.accounts[accountID]
	if !ok {
		return model.ErrAccountNotFound
	}
	if balance.IsNegative() {
		return model.ErrInsufficientFunds
	}
	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = time.Now()
	s.d.accounts[accountID] = acc
	return nil
}

func (s *Store) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry, tx pgx.Tx) error {
	defer s.acquire(tx)()

	if entry.Reference != nil {
		for _, e := range s.d.ledger {
			if e.Reference != nil && *e.Reference == *entry.Reference {
				return model.ErrDuplicateReference
			}
		}
	}
	s.d.ledgerSeq++
	entry.ID = s.d.ledgerSeq
	entry.CreatedAt = time.Now()
	s.d.ledger = append(s.d.ledger, *entry)
	return nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, accountID int64, limit, offset int) ([]*model.LedgerEntry, error) {
	defer s.acquire()()

	var matched []model.LedgerEntry
	for _, e := range s.d.ledger {
		if e.AccountID == accountID {
			matched = append(matched, e)
		}
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	var entries []*model.LedgerEntry
	for i := offset; i < len(matched) && len(entries) < limit; i++ {
		e := matched[i]
		entries = append(entries, &e)
	}
	return entries, nil
}

func (s *Store) SumLedgerEntries(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	defer s.acquire()()

	sum := decimal.Zero
	for _, e := range s.d.ledger {
		if e.AccountID != accountID {
			continue
		}
		if e.Direction == model.DirectionCredit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	return sum, nil
}

// ---- QuestionRepository ----

func (s *Store) InsertQuestion(ctx context.Context, q *model.Question) error {
	defer s.acquire()()

	s.d.questionSeq++
	q.ID = s.d.questionSeq
	q.CreatedAt = time.Now()
	s.d.questions[q.ID] = *q
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, questionID int64, tx ...pgx.Tx) (*model.Question, error) {
	defer s.acquire(tx...)()

	q, ok := s.d.questions[questionID]
	if !ok {
		return nil, model.ErrQuestionNotFound
	}
	return &q, nil
}

func (s *Store) ListQuestions(ctx context.Context, limit, offset int) ([]*model.Question, error) {
	defer s.acquire()()

	ids := s.sortedQuestionIDs()
	var questions []*model.Question
	for i := offset; i < len(ids) && len(questions) < limit; i++ {
		q := s.d.questions[ids[i]]
		questions = append(questions, &q)
	}
	return questions, nil
}

func (s *Store) CountQuestions(ctx context.Context) (int, error) {
	defer s.acquire()()
	return len(s.d.questions), nil
}

func (s *Store) SampleQuestions(ctx context.Context, n int) ([]*model.Question, error) {
	defer s.acquire()()

	ids := s.sortedQuestionIDs()
	if len(ids) < n {
		return nil, model.ErrInsufficientQuestions
	}
	perm := s.rng.Perm(len(ids))
	questions := make([]*model.Question, 0, n)
	for _, idx := range perm[:n] {
		q := s.d.questions[ids[idx]]
		questions = append(questions, &q)
	}
	return questions, nil
}

func (s *Store) sortedQuestionIDs() []int64 {
	ids := make([]int64, 0, len(s.d.questions))
	for id := range s.d.questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ---- TestRepository ----

func (s *Store) InsertTest(ctx context.Context, t *model.Test) error {
	defer s.acquire()()

	s.d.testSeq++
	t.ID = s.d.testSeq
	if t.Questions == nil {
		t.Questions = []model.TestQuestion{}
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.d.tests[t.ID] = *t
	return nil
}

func (s *Store) GetTest(ctx context.Context, testID int64, tx ...pgx.Tx) (*model.Test, error) {
	defer s.acquire(tx...)()

	t, ok := s.d.tests[testID]
	if !ok {
		return nil, model.ErrTestNotFound
	}
	return &t, nil
}

func (s *Store) GetTestForUpdate(ctx context.Context, testID int64, tx pgx.Tx) (*model.Test, error) {
	return s.GetTest(ctx, testID, tx)
}

func (s *Store) UpdateTestQuestions(ctx context.Context, testID int64, questions []model.TestQuestion, tx pgx.Tx) error {
	defer s.acquire(tx)()

	t, ok := s.d.tests[testID]
	if !ok {
		return model.ErrTestNotFound
	}
	t.Questions = append([]model.TestQuestion(nil), questions...)
	t.UpdatedAt = time.Now()
	s.d.tests[testID] = t
	return nil
}

func (s *Store) FinalizeTest(ctx context.Context, testID int64, tx pgx.Tx) (bool, error) {
	defer s.acquire(tx)()

	t, ok := s.d.tests[testID]
	if !ok || !t.IsDraft {
		return false, nil
	}
	t.IsDraft = false
	t.IsActive = true
	t.UpdatedAt = time.Now()
	s.d.tests[testID] = t
	return true, nil
}

func (s *Store) DeactivateActiveTests(ctx context.Context) (int64, error) {
	defer s.acquire()()

	var n int64
	for id, t := range s.d.tests {
		if t.IsActive {
			t.IsActive = false
			t.UpdatedAt = time.Now()
			s.d.tests[id] = t
			n++
		}
	}
	return n, nil
}

func (s *Store) ListActiveTests(ctx context.Context) ([]*model.Test, error) {
	defer s.acquire()()

	var tests []*model.Test
	for _, t := range s.d.tests {
		if t.IsActive {
			t := t
			tests = append(tests, &t)
		}
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].ID > tests[j].ID })
	return tests, nil
}

// ---- ContestRepository ----

func (s *Store) InsertContest(ctx context.Context, c *model.Contest) error {
	defer s.acquire()()

	s.d.contestSeq++
	c.ID = s.d.contestSeq
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.d.contests[c.ID] = *c
	return nil
}

func (s *Store) GetContest(ctx context.Context, contestID int64, tx ...pgx.Tx) (*model.Contest, error) {
	defer s.acquire(tx...)()

	c, ok := s.d.contests[contestID]
	if !ok {
		return nil, model.ErrContestNotFound
	}
	return &c, nil
}

func (s *Store) GetContestForUpdate(ctx context.Context, contestID int64, tx pgx.Tx) (*model.Contest, error) {
	return s.GetContest(ctx, contestID, tx)
}

func (s *Store) GetContestForShare(ctx context.Context, contestID int64, tx pgx.Tx) (*model.Contest, error) {
	return s.GetContest(ctx, contestID, tx)
}

func (s *Store) ListContests(ctx context.Context, status model.ContestStatus, limit, offset int) ([]*model.Contest, error) {
	defer s.acquire()()

	var matched []*model.Contest
	for _, c := range s.d.contests {
		if status == "" || c.Status == status {
			c := c
			matched = append(matched, &c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *Store) UpdateContestStatus(ctx context.Context, contestID int64, from, to model.ContestStatus, tx pgx.Tx) (bool, error) {
	defer s.acquire(tx)()

	c, ok := s.d.contests[contestID]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	s.d.contests[contestID] = c
	return true, nil
}

func (s *Store) MarkSettled(ctx context.Context, contestID int64, winnerID *int64, tx pgx.Tx) error {
	defer s.acquire(tx)()

	c, ok := s.d.contests[contestID]
	if !ok {
		return model.ErrContestNotFound
	}
	c.Status = model.ContestCompleted
	c.PrizeDistributed = true
	c.WinnerID = winnerID
	c.UpdatedAt = time.Now()
	s.d.contests[contestID] = c
	return nil
}

func (s *Store) InsertEntry(ctx context.Context, contestID, accountID int64, tx pgx.Tx) error {
	defer s.acquire(tx)()

	for _, e := range s.d.contestEntries {
		if e.contestID == contestID && e.accountID == accountID {
			return model.ErrAlreadyJoined
		}
	}
	s.d.entrySeq++
	s.d.contestEntries = append(s.d.contestEntries, contestEntry{
		id:        s.d.entrySeq,
		contestID: contestID,
		accountID: accountID,
		createdAt: time.Now(),
	})
	return nil
}

func (s *Store) CountEntries(ctx context.Context, contestID int64, tx ...pgx.Tx) (int, error) {
	defer s.acquire(tx...)()

	count := 0
	for _, e := range s.d.contestEntries {
		if e.contestID == contestID {
			count++
		}
	}
	return count, nil
}

func (s *Store) HasEntry(ctx context.Context, contestID, accountID int64, tx ...pgx.Tx) (bool, error) {
	defer s.acquire(tx...)()

	for _, e := range s.d.contestEntries {
		if e.contestID == contestID && e.accountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

// ---- SubmissionRepository ----

func (s *Store) InsertSubmission(ctx context.Context, sub *model.Submission, tx pgx.Tx) error {
	defer s.acquire(tx)()

	for _, existing := range s.d.submissions {
		if existing.ContestID == sub.ContestID && existing.AccountID == sub.AccountID {
			return model.ErrAlreadySubmitted
		}
	}
	s.d.submissionSeq++
	sub.ID = s.d.submissionSeq
	sub.CreatedAt = time.Now()
	if sub.Answers == nil {
		sub.Answers = []model.AnswerDetail{}
	}
	s.d.submissions = append(s.d.submissions, *sub)
	return nil
}

func (s *Store) ListByContestRanked(ctx context.Context, contestID int64, tx ...pgx.Tx) ([]*model.Submission, error) {
	defer s.acquire(tx...)()

	var matched []*model.Submission
	for _, sub := range s.d.submissions {
		if sub.ContestID == contestID {
			sub := sub
			matched = append(matched, &sub)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TimeTakenSeconds != b.TimeTakenSeconds {
			return a.TimeTakenSeconds < b.TimeTakenSeconds
		}
		return a.ID < b.ID
	})
	return matched, nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*model.Submission, error) {
	defer s.acquire()()

	var matched []*model.Submission
	for _, sub := range s.d.submissions {
		if sub.AccountID == accountID {
			sub := sub
			matched = append(matched, &sub)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}
