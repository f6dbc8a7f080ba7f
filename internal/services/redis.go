package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"code-arena-backend/internal/config"
	"code-arena-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisService is the single source of truth for battle tickets and the
// wallet ledger. Every multi-key mutation runs as one Lua script, so
// concurrent gateway handlers and the lifecycle sweep observe a strict
// winner/loser ordering on any given ticket with no partial effects.
type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// ---- wallets ----

// EnsureWallet creates the wallet and seeds its starting balance on first
// touch. Both writes are SETNX so concurrent first requests cannot double
// seed.
func (s *RedisService) EnsureWallet(userID, name string) (*models.Wallet, error) {
	wallet := &models.Wallet{
		UserID:    userID,
		Name:      name,
		Rating:    models.DefaultRating,
		CreatedAt: time.Now().Unix(),
	}

	data, err := json.Marshal(wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wallet: %v", err)
	}

	key := fmt.Sprintf(KeyWallet, userID)
	created, err := s.client.SetNX(s.ctx, key, data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %v", err)
	}
	s.client.SetNX(s.ctx, fmt.Sprintf(KeyWalletBalance, userID), models.StartingBalance, 0)

	if created {
		return wallet, nil
	}
	return s.GetWallet(userID)
}

func (s *RedisService) GetWallet(userID string) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return s.EnsureWallet(userID, "")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %v", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %v", err)
	}

	return &wallet, nil
}

func (s *RedisService) GetBalance(userID string) (int64, error) {
	val, err := s.client.Get(s.ctx, fmt.Sprintf(KeyWalletBalance, userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (s *RedisService) GetRating(userID string) (int64, error) {
	wallet, err := s.GetWallet(userID)
	if err != nil {
		return 0, err
	}
	return wallet.Rating, nil
}

// ---- wallet ledger scripts ----

// debitScript is the atomic check-and-debit: the balance check, the
// idempotency guard and the ledger append happen in one unit. A retried
// debit for a ticket that already holds one returns ok without a second row.
var debitScript = redis.NewScript(`
	local guard = KEYS[1]
	local balance = KEYS[2]
	local amount = tonumber(ARGV[1])

	if redis.call("EXISTS", guard) == 1 then
		return "dup"
	end

	local bal = tonumber(redis.call("GET", balance) or "0")
	if bal < amount then
		return "insufficient"
	end

	redis.call("SET", guard, "1")
	redis.call("DECRBY", balance, amount)
	redis.call("LPUSH", KEYS[3], ARGV[2])
	redis.call("RPUSH", KEYS[4], ARGV[2])

	return "ok"
`)

// applyScript appends a credit or refund row. Same guard discipline, no
// balance check.
var applyScript = redis.NewScript(`
	local guard = KEYS[1]

	if redis.call("EXISTS", guard) == 1 then
		return "dup"
	end

	redis.call("SET", guard, "1")
	redis.call("INCRBY", KEYS[2], ARGV[1])
	redis.call("LPUSH", KEYS[3], ARGV[2])
	redis.call("RPUSH", KEYS[4], ARGV[2])

	return "ok"
`)

func (s *RedisService) ledgerKeys(userID, ticketID string, kind models.EntryKind) []string {
	return []string{
		fmt.Sprintf(KeyLedgerGuard, ticketID, userID, kind),
		fmt.Sprintf(KeyWalletBalance, userID),
		fmt.Sprintf(KeyWalletLedger, userID),
		fmt.Sprintf(KeyTicketLedger, ticketID),
	}
}

func newEntry(userID, ticketID string, kind models.EntryKind, amount int64, desc string) *models.WalletEntry {
	return &models.WalletEntry{
		ID:          models.GenerateEntryID(),
		UserID:      userID,
		TicketID:    ticketID,
		Kind:        kind,
		Amount:      amount,
		Description: desc,
		CreatedAt:   time.Now().Unix(),
	}
}

// Debit escrows amount against ticketID. Idempotent per
// (user, ticket, debit); returns models.ErrInsufficientFunds when the
// balance cannot cover it.
func (s *RedisService) Debit(userID, ticketID string, amount int64, desc string) error {
	entry := newEntry(userID, ticketID, models.EntryDebit, amount, desc)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %v", err)
	}

	res, err := debitScript.Run(s.ctx, s.client, s.ledgerKeys(userID, ticketID, models.EntryDebit), amount, data).Text()
	if err != nil {
		return fmt.Errorf("debit failed: %v", err)
	}
	if res == "insufficient" {
		return models.ErrInsufficientFunds
	}
	return nil
}

func (s *RedisService) Credit(userID, ticketID string, amount int64, desc string) error {
	return s.applyEntry(userID, ticketID, models.EntryCredit, amount, desc)
}

func (s *RedisService) Refund(userID, ticketID string, amount int64, desc string) error {
	return s.applyEntry(userID, ticketID, models.EntryRefund, amount, desc)
}

func (s *RedisService) applyEntry(userID, ticketID string, kind models.EntryKind, amount int64, desc string) error {
	entry := newEntry(userID, ticketID, kind, amount, desc)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %v", err)
	}

	_, err = applyScript.Run(s.ctx, s.client, s.ledgerKeys(userID, ticketID, kind), amount, data).Text()
	if err != nil {
		return fmt.Errorf("%s failed: %v", kind, err)
	}
	return nil
}

func (s *RedisService) UserLedger(userID string, limit int64) ([]*models.WalletEntry, error) {
	if limit <= 0 || limit > MaxLedgerFetch {
		limit = 50
	}
	return s.readLedger(fmt.Sprintf(KeyWalletLedger, userID), limit)
}

// TicketLedger returns every entry tagged to a ticket, oldest first. For
// void, cancel and expire outcomes the rows net to zero; for decisive
// outcomes they net to the prize pool minus both stakes.
func (s *RedisService) TicketLedger(ticketID string) ([]*models.WalletEntry, error) {
	return s.readLedger(fmt.Sprintf(KeyTicketLedger, ticketID), -1)
}

func (s *RedisService) readLedger(key string, limit int64) ([]*models.WalletEntry, error) {
	stop := limit - 1
	if limit < 0 {
		stop = -1
	}
	rows, err := s.client.LRange(s.ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %v", err)
	}

	var entries []*models.WalletEntry
	for _, row := range rows {
		var entry models.WalletEntry
		if err := json.Unmarshal([]byte(row), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// ---- ticket store ----

// createTicketScript persists a fresh waiting ticket and escrows the
// creator's entry fee as one atomic unit: the debit cannot exist without the
// ticket, nor the ticket without the debit. Unless forced, it refuses to
// create while a joinable ticket sits in the bucket queue, which closes the
// window where two simultaneous creators both end up waiting.
// Ticket keys are derived inside the script; fine on a single-node Redis.
var createTicketScript = redis.NewScript(`
	if ARGV[6] ~= "1" then
		local ids = redis.call("ZRANGE", KEYS[2], 0, 4)
		for _, id in ipairs(ids) do
			local data = redis.call("GET", ARGV[7] .. id)
			if data then
				local c = cjson.decode(data)
				if c.state == "waiting" and c.creator_id ~= ARGV[8] then
					return "retry"
				end
			end
		end
	end

	local guard = KEYS[3]
	local balance = KEYS[4]
	local fee = tonumber(ARGV[4])

	if redis.call("EXISTS", guard) == 0 then
		local bal = tonumber(redis.call("GET", balance) or "0")
		if bal < fee then
			return "insufficient"
		end
		redis.call("SET", guard, "1")
		redis.call("DECRBY", balance, fee)
		redis.call("LPUSH", KEYS[5], ARGV[5])
		redis.call("RPUSH", KEYS[6], ARGV[5])
	end

	redis.call("SET", KEYS[1], ARGV[1])
	redis.call("ZADD", KEYS[2], ARGV[3], ARGV[2])
	redis.call("ZADD", KEYS[7], ARGV[3], ARGV[2])

	return "ok"
`)

// pairTicketScript is the single-winner pairing transition: it verifies the
// candidate is still waiting, escrows the joiner's fee, assigns the opponent
// and moves the ticket from the bucket queue to the matched index, all in
// one script. Losers see "conflict" and no partial effects.
var pairTicketScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return "gone"
	end

	local t = cjson.decode(data)
	if t.state ~= "waiting" then
		return "conflict"
	end
	if t.creator_id == ARGV[1] then
		return "self"
	end

	local guard = KEYS[4]
	local balance = KEYS[5]
	local fee = tonumber(ARGV[5])

	if redis.call("EXISTS", guard) == 0 then
		local bal = tonumber(redis.call("GET", balance) or "0")
		if bal < fee then
			return "insufficient"
		end
		redis.call("SET", guard, "1")
		redis.call("DECRBY", balance, fee)
		redis.call("LPUSH", KEYS[6], ARGV[6])
		redis.call("RPUSH", KEYS[7], ARGV[6])
	end

	local now = tonumber(ARGV[4])
	t.state = "matched"
	t.opponent_id = ARGV[1]
	t.opponent_name = ARGV[2]
	t.opponent_rating = tonumber(ARGV[3])
	t.matched_at = now
	t.updated_at = now

	redis.call("SET", KEYS[1], cjson.encode(t))
	redis.call("ZREM", KEYS[2], t.id)
	redis.call("ZADD", KEYS[3], now, t.id)
	redis.call("ZADD", KEYS[8], now, t.id)

	return "ok"
`)

// closeWaitingScript moves a waiting ticket to cancelled or expired. A non
// empty actor must be the creator. Terminal tickets are left untouched and
// reported back, supporting idempotent retries.
var closeWaitingScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return "gone"
	end

	local t = cjson.decode(data)
	if t.state == "completed" or t.state == "cancelled" or t.state == "expired" or t.state == "void" then
		return "terminal:" .. t.state
	end
	if t.state ~= "waiting" then
		return "conflict"
	end
	if ARGV[3] ~= "" and t.creator_id ~= ARGV[3] then
		return "denied"
	end

	local now = tonumber(ARGV[2])
	t.state = ARGV[1]
	t.completed_at = now
	t.updated_at = now

	redis.call("SET", KEYS[1], cjson.encode(t))
	redis.call("ZREM", KEYS[2], t.id)
	redis.call("SADD", KEYS[3], t.id)

	return "ok"
`)

// voidMatchedScript voids a matched ticket whose readiness window lapsed.
var voidMatchedScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return "gone"
	end

	local t = cjson.decode(data)
	if t.state == "completed" or t.state == "cancelled" or t.state == "expired" or t.state == "void" then
		return "terminal:" .. t.state
	end
	if t.state ~= "matched" then
		return "conflict"
	end

	local now = tonumber(ARGV[1])
	t.state = "void"
	t.win_reason = ARGV[2]
	t.completed_at = now
	t.updated_at = now

	redis.call("SET", KEYS[1], cjson.encode(t))
	redis.call("ZREM", KEYS[2], t.id)
	redis.call("SADD", KEYS[3], t.id)

	return "ok"
`)

// readyScript records a participant's readiness ack; when both sides have
// acknowledged it flips the ticket matched -> active and stamps the play
// deadline into the active index.
var readyScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return "gone"
	end

	local t = cjson.decode(data)
	if t.state == "completed" or t.state == "cancelled" or t.state == "expired" or t.state == "void" then
		return "terminal:" .. t.state
	end
	if t.state == "active" then
		return "active"
	end
	if t.state ~= "matched" then
		return "conflict"
	end

	if t.creator_id == ARGV[1] then
		t.creator_ready = true
	elseif t.opponent_id == ARGV[1] then
		t.opponent_ready = true
	else
		return "denied"
	end

	local now = tonumber(ARGV[2])
	t.updated_at = now

	local started = false
	if t.creator_ready and t.opponent_ready then
		t.state = "active"
		t.started_at = now
		started = true
	end

	redis.call("SET", KEYS[1], cjson.encode(t))

	if started then
		redis.call("ZREM", KEYS[2], t.id)
		redis.call("ZADD", KEYS[3], now + t.time_limit + tonumber(ARGV[3]), t.id)
		return "started"
	end

	return "ok"
`)

// completeActiveScript is the single-fire active -> completed transition
// that admits exactly one settlement per ticket.
var completeActiveScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return "gone"
	end

	local t = cjson.decode(data)
	if t.state == "completed" or t.state == "cancelled" or t.state == "expired" or t.state == "void" then
		return "terminal:" .. t.state
	end
	if t.state ~= "active" then
		return "conflict"
	end
	if ARGV[1] ~= "" and ARGV[1] ~= t.creator_id and ARGV[1] ~= t.opponent_id then
		return "badwinner"
	end

	local now = tonumber(ARGV[3])
	t.state = "completed"
	if ARGV[1] ~= "" then
		t.winner_id = ARGV[1]
	end
	t.win_reason = ARGV[2]
	t.completed_at = now
	t.updated_at = now

	redis.call("SET", KEYS[1], cjson.encode(t))
	redis.call("ZREM", KEYS[2], t.id)
	redis.call("SADD", KEYS[3], t.id)

	return "ok"
`)

func ticketKey(ticketID string) string {
	return fmt.Sprintf(KeyTicket, ticketID)
}

func bucketKey(difficulty models.Difficulty, entryFee int64) string {
	return fmt.Sprintf(KeyBucketQueue, difficulty, entryFee)
}

// ErrJoinableTicketExists signals that the bucket queue held a joinable
// ticket when an unforced create ran; the caller should retry pairing.
var ErrJoinableTicketExists = fmt.Errorf("a joinable ticket is waiting in this bucket")

// CreateTicketWithDebit persists a waiting ticket and escrows the creator's
// fee atomically. With force false it returns ErrJoinableTicketExists
// instead of creating next to a joinable waiting ticket.
func (s *RedisService) CreateTicketWithDebit(t *models.BattleTicket, force bool) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %v", err)
	}

	entry := newEntry(t.CreatorID, t.ID, models.EntryDebit, t.EntryFee, "Battle entry fee")
	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %v", err)
	}

	keys := []string{
		ticketKey(t.ID),
		bucketKey(t.Difficulty, t.EntryFee),
		fmt.Sprintf(KeyLedgerGuard, t.ID, t.CreatorID, models.EntryDebit),
		fmt.Sprintf(KeyWalletBalance, t.CreatorID),
		fmt.Sprintf(KeyWalletLedger, t.CreatorID),
		fmt.Sprintf(KeyTicketLedger, t.ID),
		fmt.Sprintf(KeyUserBattles, t.CreatorID),
	}

	forced := "0"
	if force {
		forced = "1"
	}

	res, err := createTicketScript.Run(s.ctx, s.client, keys,
		data, t.ID, t.CreatedAt, t.EntryFee, entryData,
		forced, fmt.Sprintf(KeyTicket, ""), t.CreatorID).Text()
	if err != nil {
		return fmt.Errorf("failed to create ticket: %v", err)
	}
	switch res {
	case "ok":
		return nil
	case "insufficient":
		return models.ErrInsufficientFunds
	case "retry":
		return ErrJoinableTicketExists
	}
	return fmt.Errorf("unexpected create result: %s", res)
}

// PairTicketWithDebit attempts the waiting -> matched transition on a
// candidate ticket for the joining user, escrowing the joiner's fee in the
// same atomic unit. Exactly one concurrent caller wins; the rest get
// models.ErrPairingConflict with no side effects.
func (s *RedisService) PairTicketWithDebit(candidateID, userID, userName string, rating, entryFee int64, difficulty models.Difficulty) error {
	entry := newEntry(userID, candidateID, models.EntryDebit, entryFee, "Battle entry fee")
	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %v", err)
	}

	keys := []string{
		ticketKey(candidateID),
		bucketKey(difficulty, entryFee),
		KeyMatchedIndex,
		fmt.Sprintf(KeyLedgerGuard, candidateID, userID, models.EntryDebit),
		fmt.Sprintf(KeyWalletBalance, userID),
		fmt.Sprintf(KeyWalletLedger, userID),
		fmt.Sprintf(KeyTicketLedger, candidateID),
		fmt.Sprintf(KeyUserBattles, userID),
	}

	res, err := pairTicketScript.Run(s.ctx, s.client, keys,
		userID, userName, rating, time.Now().Unix(), entryFee, entryData).Text()
	if err != nil {
		return fmt.Errorf("pairing failed: %v", err)
	}

	switch res {
	case "ok":
		return nil
	case "insufficient":
		return models.ErrInsufficientFunds
	case "gone", "conflict", "self":
		return models.ErrPairingConflict
	}
	return fmt.Errorf("unexpected pairing result: %s", res)
}

// CloseWaiting transitions waiting -> cancelled|expired. actorID empty means
// the lifecycle supervisor; otherwise it must be the creator.
func (s *RedisService) CloseWaiting(t *models.BattleTicket, newState models.TicketState, actorID string) error {
	keys := []string{
		ticketKey(t.ID),
		bucketKey(t.Difficulty, t.EntryFee),
		KeyPendingSettle,
	}

	res, err := closeWaitingScript.Run(s.ctx, s.client, keys, string(newState), time.Now().Unix(), actorID).Text()
	if err != nil {
		return fmt.Errorf("failed to close ticket: %v", err)
	}
	return mapTransitionResult(res)
}

func (s *RedisService) VoidMatched(ticketID, reason string) error {
	keys := []string{ticketKey(ticketID), KeyMatchedIndex, KeyPendingSettle}

	res, err := voidMatchedScript.Run(s.ctx, s.client, keys, time.Now().Unix(), reason).Text()
	if err != nil {
		return fmt.Errorf("failed to void ticket: %v", err)
	}
	return mapTransitionResult(res)
}

// MarkReady records userID's readiness ack. Returns true once the battle is
// active (including a repeated ack on an already active ticket).
func (s *RedisService) MarkReady(ticketID, userID string, grace time.Duration) (bool, error) {
	keys := []string{ticketKey(ticketID), KeyMatchedIndex, KeyActiveIndex}

	res, err := readyScript.Run(s.ctx, s.client, keys, userID, time.Now().Unix(), int64(grace.Seconds())).Text()
	if err != nil {
		return false, fmt.Errorf("failed to mark ready: %v", err)
	}
	switch res {
	case "started", "active":
		return true, nil
	case "ok":
		return false, nil
	case "denied":
		return false, models.ErrNotParticipant
	}
	return false, mapTransitionResult(res)
}

// CompleteActive is the single-fire outcome transition. winnerID empty means
// a draw.
func (s *RedisService) CompleteActive(ticketID, winnerID, reason string) error {
	keys := []string{ticketKey(ticketID), KeyActiveIndex, KeyPendingSettle}

	res, err := completeActiveScript.Run(s.ctx, s.client, keys, winnerID, reason, time.Now().Unix()).Text()
	if err != nil {
		return fmt.Errorf("failed to complete ticket: %v", err)
	}
	if res == "badwinner" {
		return models.ErrNotParticipant
	}
	return mapTransitionResult(res)
}

func mapTransitionResult(res string) error {
	switch {
	case res == "ok":
		return nil
	case res == "gone":
		return models.ErrTicketNotFound
	case strings.HasPrefix(res, "terminal:"):
		return models.ErrAlreadyTerminal
	case res == "conflict":
		return models.ErrPairingConflict
	case res == "denied":
		return models.ErrCancelDenied
	}
	return fmt.Errorf("unexpected transition result: %s", res)
}

func (s *RedisService) GetTicket(ticketID string) (*models.BattleTicket, error) {
	data, err := s.client.Get(s.ctx, ticketKey(ticketID)).Result()
	if err == redis.Nil {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %v", err)
	}

	var t models.BattleTicket
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket: %v", err)
	}
	return &t, nil
}

func (s *RedisService) BulkGetTickets(ticketIDs []string) ([]*models.BattleTicket, error) {
	if len(ticketIDs) == 0 {
		return []*models.BattleTicket{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ticketIDs))
	for i, id := range ticketIDs {
		cmds[i] = pipe.Get(s.ctx, ticketKey(id))
	}

	_, err := pipe.Exec(s.ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %v", err)
	}

	var tickets []*models.BattleTicket
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var t models.BattleTicket
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			continue
		}
		tickets = append(tickets, &t)
	}
	return tickets, nil
}

// QueueCandidates returns waiting ticket ids for a bucket, oldest first.
func (s *RedisService) QueueCandidates(difficulty models.Difficulty, entryFee, limit int64) ([]string, error) {
	return s.client.ZRange(s.ctx, bucketKey(difficulty, entryFee), 0, limit-1).Result()
}

// StaleWaiting returns bucket tickets created before the cutoff.
func (s *RedisService) StaleWaiting(difficulty models.Difficulty, entryFee int64, cutoff time.Time) ([]string, error) {
	return s.rangeByScore(bucketKey(difficulty, entryFee), cutoff.Unix())
}

// StaleMatched returns matched tickets whose matchedAt predates the cutoff.
func (s *RedisService) StaleMatched(cutoff time.Time) ([]string, error) {
	return s.rangeByScore(KeyMatchedIndex, cutoff.Unix())
}

// OverdueActive returns active tickets whose play deadline has passed.
func (s *RedisService) OverdueActive(now time.Time) ([]string, error) {
	return s.rangeByScore(KeyActiveIndex, now.Unix())
}

func (s *RedisService) rangeByScore(key string, max int64) ([]string, error) {
	return s.client.ZRangeByScore(s.ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", max),
	}).Result()
}

func (s *RedisService) UserTickets(userID string, limit int64) ([]string, error) {
	if limit <= 0 || limit > MaxUserBattles {
		limit = 50
	}
	return s.client.ZRevRange(s.ctx, fmt.Sprintf(KeyUserBattles, userID), 0, limit-1).Result()
}

// ---- settlement bookkeeping ----

func (s *RedisService) PendingSettlements() ([]string, error) {
	return s.client.SMembers(s.ctx, KeyPendingSettle).Result()
}

func (s *RedisService) ClearPendingSettlement(ticketID string) error {
	return s.client.SRem(s.ctx, KeyPendingSettle, ticketID).Err()
}

// TouchTicketTTL caps a settled ticket's retention. Terminal tickets stay
// readable for audit and idempotent re-polling until the TTL runs out.
func (s *RedisService) TouchTicketTTL(ticketID string) {
	s.client.Expire(s.ctx, ticketKey(ticketID), TTLTicket)
	s.client.Expire(s.ctx, fmt.Sprintf(KeyTicketLedger, ticketID), TTLTicket)
}

// ---- challenge pool ----

func (s *RedisService) SeedChallenges(difficulty models.Difficulty, refs []string) error {
	if len(refs) == 0 {
		return nil
	}
	members := make([]interface{}, len(refs))
	for i, ref := range refs {
		members[i] = ref
	}
	return s.client.SAdd(s.ctx, fmt.Sprintf(KeyChallengePool, difficulty), members...).Err()
}

// RandomChallenge picks a seeded problem ref for the difficulty, or an
// opaque generated one when the pool is empty.
func (s *RedisService) RandomChallenge(difficulty models.Difficulty) string {
	ref, err := s.client.SRandMember(s.ctx, fmt.Sprintf(KeyChallengePool, difficulty)).Result()
	if err != nil || ref == "" {
		return models.GenerateProblemRef(difficulty)
	}
	return ref
}

// ---- rate limiting ----

func (s *RedisService) CheckRateLimit(userID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

// ---- test helpers ----

func (s *RedisService) DeleteWallet(userID string) error {
	return s.client.Del(s.ctx,
		fmt.Sprintf(KeyWallet, userID),
		fmt.Sprintf(KeyWalletBalance, userID),
		fmt.Sprintf(KeyWalletLedger, userID),
		fmt.Sprintf(KeyUserBattles, userID),
	).Err()
}

func (s *RedisService) DeleteTicket(t *models.BattleTicket) error {
	s.client.ZRem(s.ctx, bucketKey(t.Difficulty, t.EntryFee), t.ID)
	s.client.ZRem(s.ctx, KeyMatchedIndex, t.ID)
	s.client.ZRem(s.ctx, KeyActiveIndex, t.ID)
	s.client.SRem(s.ctx, KeyPendingSettle, t.ID)
	for _, userID := range []string{t.CreatorID, t.OpponentID} {
		if userID == "" {
			continue
		}
		for _, kind := range []models.EntryKind{models.EntryDebit, models.EntryCredit, models.EntryRefund} {
			s.client.Del(s.ctx, fmt.Sprintf(KeyLedgerGuard, t.ID, userID, kind))
		}
	}
	return s.client.Del(s.ctx, ticketKey(t.ID), fmt.Sprintf(KeyTicketLedger, t.ID)).Err()
}

func (s *RedisService) ClearRateLimit(userID, action string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyRateLimit, userID, action)).Err()
}
