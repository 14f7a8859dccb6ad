package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kkutu/internal/dict"
	"kkutu/internal/game"
	"kkutu/internal/httpserver"
	"kkutu/internal/store"
)

// referenceTZ is the time zone whose wall-clock hour defines round slots.
const referenceTZ = "Asia/Seoul"

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	loc, err := time.LoadLocation(referenceTZ)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load reference time zone")
	}

	words, err := dict.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dictionary")
	}
	log.Info().Int("words", words.Count()).Msg("dictionary loaded")

	var (
		st       game.Store
		accounts store.Accounts
	)
	seed := game.NewRound(game.DefaultStartChar, time.Now().In(loc).Hour())
	if getEnv("STORE", "sqlite") == "memory" {
		mem := store.NewMemory(seed)
		st, accounts = mem, mem
	} else {
		db, err := openDB(getEnv("DB_PATH", "./data/kkutu.db"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		if err := store.InitSchema(db, seed); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize schema")
		}
		sq := store.NewSQLite(db)
		st, accounts = sq, sq
	}

	engine := game.NewEngine(st, words, loc)
	srv := httpserver.New(engine, accounts, words)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting kkutu server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
