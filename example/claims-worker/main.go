package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bountyhooks/internal"
	"bountyhooks/pkg/tasks"
)

type claimTransition struct {
	Action      string  `json:"action"`
	State       string  `json:"state"`
	RepoID      int64   `json:"repo_id"`
	PRNumber    int     `json:"pr_number"`
	IssueNumber int     `json:"issue_number"`
	UserLogin   string  `json:"user_login"`
	CommitID    *string `json:"commit_id"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to app config")
	topic := flag.String("topic", "claims.merged", "Notification topic to consume")
	driver := flag.String("driver", "", "Override task driver (amqp|nats|kafka|sql|river)")
	flag.Parse()

	log.SetPrefix("bountyhooks/claims-worker ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	taskCfg := appCfg.Tasks
	taskCfg.Topic = *topic
	if *driver != "" {
		taskCfg.Driver = *driver
	}
	switch strings.ToLower(taskCfg.Driver) {
	case "", "gochannel":
		log.Fatalf("gochannel is in-process only; pick a broker driver")
	case "river":
		taskCfg.River.Queue = tasks.RiverQueueName(*topic)
	}

	queue, err := tasks.New(ctx, taskCfg, log.Default(), tasks.Listener{
		OnTaskFinish: func(ctx context.Context, task tasks.Task, err error) {
			log.Printf("finished kind=%s id=%s err=%v", task.Kind, task.ID, err)
		},
	})
	if err != nil {
		log.Fatalf("task queue: %v", err)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			log.Printf("queue close: %v", err)
		}
	}()

	queue.Handle(*topic, func(ctx context.Context, task tasks.Task) error {
		var claim claimTransition
		if err := task.Decode(&claim); err != nil {
			return err
		}
		commit := "-"
		if claim.CommitID != nil {
			commit = *claim.CommitID
		}
		log.Printf("claim %s repo=%d pr=%d issue=%d user=%s commit=%s",
			claim.State, claim.RepoID, claim.PRNumber, claim.IssueNumber, claim.UserLogin, commit)
		return nil
	})

	if err := queue.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}
	log.Printf("consuming topic=%s driver=%s", *topic, taskCfg.Driver)
	<-ctx.Done()
}
