package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/jferreira/maitrenotifie/core"
	"github.com/jferreira/maitrenotifie/core/roster"
	rosterdb "github.com/jferreira/maitrenotifie/storage/roster"
)

func main() {
	conf := core.NewConfig()

	repo, err := newRepository(conf)
	errAndDie(err)

	rosterSvc, err := roster.NewService(context.Background(), repo)
	errAndDie(err)

	cli := &commandLine{repo: repo, rosterSvc: rosterSvc}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRepository(conf *core.Config) (roster.Repository, error) {
	switch conf.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: conf.Storage.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		return rosterdb.NewRedisRepository(client, conf.Storage.Key), nil
	default:
		return rosterdb.NewFileRepository(conf.Storage.File), nil
	}
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
