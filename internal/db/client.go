package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

type ImportRun struct {
	ID         uuid.UUID
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Battles    int64
}

type Battle struct {
	RunID    uuid.UUID
	Row      int64
	Period   time.Time
	Lobby    string
	Mode     string
	Stage    string
	Duration int64
	Winner   string
	Knockout bool
	Rank     string
	Power    *float64

	Participants []BattleParticipant
}

type BattleParticipant struct {
	Team            string
	Slot            int
	Loadout         string
	KillsAndAssists int
	Kills           int
	Assists         int
	Deaths          int
	SpecialUses     int
	TurfInked       int
}

type LoadoutRating struct {
	ID      int64
	Mode    string
	Loadout string

	Rating           float64
	UncertaintyValue float64
	Result           string
	DiffValue        float64
	GamesPlayed      int64
	GamesWon         int64
}

type RatingUpdate struct {
	BattleID int64
	Stage    string
	Rating   float64
	Result   string
	Date     string
	Time     string
}

type LeaderboardEntry struct {
	Loadout     string
	Rating      float64
	Uncertainty float64
	GamesWon    int64
	GamesPlayed int64
}

type Client struct {
	pool *pgxpool.Pool
}

func NewClient(ctx context.Context, dsn string) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %v", err)
	}

	return &Client{pool: pool}, nil
}

func (c *Client) Close() {
	c.pool.Close()
}

// CreateTables creates the schema if it does not exist yet.
func (c *Client) CreateTables(ctx context.Context) error {
	queries := []string{
		`create table if not exists import_runs (
			id uuid primary key,
			source text not null,
			started_at timestamptz not null,
			finished_at timestamptz,
			battles bigint not null default 0
		)`,
		`create table if not exists battles (
			id bigserial primary key,
			run_id uuid not null references import_runs(id),
			row_index bigint not null,
			period timestamptz not null,
			lobby text not null,
			mode text not null,
			stage text not null,
			duration_seconds bigint not null,
			winner text not null,
			knockout boolean not null,
			rank text not null,
			power double precision
		)`,
		`create table if not exists battle_participants (
			battle_id bigint not null references battles(id),
			team text not null,
			slot smallint not null,
			loadout text not null,
			kill_assist int not null,
			kill int not null,
			assist int not null,
			death int not null,
			special int not null,
			inked int not null,
			primary key (battle_id, team, slot)
		)`,
		`create table if not exists loadout_leaderboard (
			id bigserial primary key,
			mode text not null,
			loadout text not null,
			rating double precision not null,
			uncertainty_value double precision not null,
			games_played bigint not null default 0,
			games_won bigint not null default 0,
			unique (mode, loadout)
		)`,
		`create table if not exists loadout_rating_history (
			battle_id bigint not null references battles(id),
			leaderboard_id bigint not null references loadout_leaderboard(id),
			rating_value double precision not null,
			result text not null,
			ts timestamptz not null
		)`,
		`create index if not exists idx_loadout_rating_history_leaderboard on loadout_rating_history(leaderboard_id)`,
		`create index if not exists idx_battles_mode on battles(mode)`,
	}

	for _, query := range queries {
		if _, err := c.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("CreateTables: %w", err)
		}
	}

	return nil
}

func (c *Client) StartImport(ctx context.Context, run ImportRun) error {
	const query = `insert into import_runs(id, source, started_at) values ($1, $2, $3)`

	if _, err := c.pool.Exec(ctx, query, run.ID, run.Source, run.StartedAt); err != nil {
		return fmt.Errorf("StartImport: %w", err)
	}

	return nil
}

func (c *Client) FinishImport(ctx context.Context, run ImportRun) error {
	const query = `update import_runs set finished_at = $1, battles = $2 where id = $3`

	if _, err := c.pool.Exec(ctx, query, run.FinishedAt, run.Battles, run.ID); err != nil {
		return fmt.Errorf("FinishImport: %w", err)
	}

	return nil
}

// SaveBattle stores a battle with its participants and returns the battle id.
func (c *Client) SaveBattle(ctx context.Context, battle Battle) (int64, error) {
	const battleQuery = `
		insert into battles(run_id, row_index, period, lobby, mode, stage, duration_seconds, winner, knockout, rank, power)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning id`

	const participantQuery = `
		insert into battle_participants(battle_id, team, slot, loadout, kill_assist, kill, assist, death, special, inked)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var battleID int64
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, battleQuery,
			battle.RunID, battle.Row, battle.Period, battle.Lobby, battle.Mode, battle.Stage,
			battle.Duration, battle.Winner, battle.Knockout, battle.Rank, battle.Power,
		).Scan(&battleID)
		if err != nil {
			return err
		}

		b := &pgx.Batch{}
		for _, p := range battle.Participants {
			b.Queue(participantQuery, battleID, p.Team, p.Slot, p.Loadout,
				p.KillsAndAssists, p.Kills, p.Assists, p.Deaths, p.SpecialUses, p.TurfInked)
		}

		return tx.SendBatch(ctx, b).Close()
	})
	if err != nil {
		return 0, fmt.Errorf("SaveBattle: %w", err)
	}

	return battleID, nil
}

func (c *Client) GetLoadoutRatings(ctx context.Context) ([]LoadoutRating, error) {
	const query = `
		select
		    id,
		    mode,
		    loadout,
		    rating,
		    uncertainty_value,
		    games_played,
		    games_won
		from loadout_leaderboard`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("GetLoadoutRatings: %w", err)
	}

	type result struct {
		ID               int64
		Mode             string
		Loadout          string
		Rating           float64
		UncertaintyValue float64
		GamesPlayed      int64
		GamesWon         int64
	}

	results, err := pgx.CollectRows(rows, pgx.RowToStructByPos[result])
	if err != nil {
		return nil, fmt.Errorf("collecting results for GetLoadoutRatings: %w", err)
	}

	return lo.Map(results, func(r result, _ int) LoadoutRating {
		return LoadoutRating{
			ID:               r.ID,
			Mode:             r.Mode,
			Loadout:          r.Loadout,
			Rating:           r.Rating,
			UncertaintyValue: r.UncertaintyValue,
			GamesPlayed:      r.GamesPlayed,
			GamesWon:         r.GamesWon,
		}
	}), nil
}

// UpsertLoadoutRatings writes ratings and returns them with their leaderboard ids set.
func (c *Client) UpsertLoadoutRatings(ctx context.Context, ratings []LoadoutRating) ([]LoadoutRating, error) {
	const query = `
		insert into loadout_leaderboard(mode, loadout, rating, uncertainty_value, games_played, games_won)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (mode, loadout) do update set
			rating = excluded.rating,
			uncertainty_value = excluded.uncertainty_value,
			games_played = excluded.games_played,
			games_won = excluded.games_won
		returning id`

	var b = &pgx.Batch{}

	for _, r := range ratings {
		b.Queue(query, r.Mode, r.Loadout, r.Rating, r.UncertaintyValue, r.GamesPlayed, r.GamesWon)
	}

	br := c.pool.SendBatch(ctx, b)
	defer br.Close()

	out := make([]LoadoutRating, len(ratings))
	for i, r := range ratings {
		if err := br.QueryRow().Scan(&r.ID); err != nil {
			return nil, fmt.Errorf("UpsertLoadoutRatings: %d: %w", i, err)
		}
		out[i] = r
	}

	return out, nil
}

func (c *Client) LogRatingUpdates(ctx context.Context, battleID int64, ratings []LoadoutRating, ts time.Time) error {
	const query = `insert into loadout_rating_history(battle_id, leaderboard_id, rating_value, result, ts) values ($1, $2, $3, $4, $5)`

	var b = &pgx.Batch{}

	for _, r := range ratings {
		b.Queue(query, battleID, r.ID, r.Rating, r.Result, ts)
	}

	br := c.pool.SendBatch(ctx, b)
	defer br.Close()

	for i := range ratings {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("LogRatingUpdates: %d: %w", i, err)
		}
	}

	return nil
}

func (c *Client) GetLeaderboardForMode(ctx context.Context, mode string, offset, limit int) ([]LeaderboardEntry, error) {
	const minPlayedGames = 15

	const query = `
		select
    		loadout,
    		rating,
    		uncertainty_value,
    		games_won,
    		games_played
		from loadout_leaderboard
		where mode = $1
			and games_played > $2
		order by rating desc
		offset $3 limit $4`

	rows, err := c.pool.Query(ctx, query, mode, minPlayedGames, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("GetLeaderboardForMode: failed to query leaderboard entries: %w", err)
	}

	results, err := pgx.CollectRows(rows, pgx.RowToStructByPos[LeaderboardEntry])
	if err != nil {
		return nil, fmt.Errorf("GetLeaderboardForMode: failed to parse rows: %w", err)
	}

	return results, nil
}

func (c *Client) GetAvailableModes(ctx context.Context) ([]string, error) {
	const query = `select distinct mode from loadout_leaderboard order by mode`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("GetAvailableModes: %w", err)
	}

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (c *Client) GetLoadoutRatingHistory(ctx context.Context, mode, loadout string) ([]RatingUpdate, error) {
	const query = `
		select
			b.id,
			b.stage,
			rh.rating_value,
			rh.result,
			to_char(rh.ts, 'YYYY/MM/DD'),
			to_char(rh.ts, 'HH24:MI:SS')
		from loadout_rating_history rh
		join loadout_leaderboard l on rh.leaderboard_id = l.id
		join battles b on rh.battle_id = b.id
		where
			l.mode = $1 and l.loadout = $2
		order by rh.ts, b.id`

	rows, err := c.pool.Query(ctx, query, mode, loadout)
	if err != nil {
		return nil, fmt.Errorf("GetLoadoutRatingHistory: quering rows: %w", err)
	}

	return pgx.CollectRows(rows, pgx.RowToStructByPos[RatingUpdate])
}
