package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ticketing_app_echo/internal/config"
	"ticketing_app_echo/internal/logger"
	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
	"ticketing_app_echo/internal/tasks"
)

func main() {
	taskName := flag.String("task_name", "", "Name of the task (mandatory)")
	argsStr := flag.String("arguments", "{}", "JSON arguments for the task")
	dueStr := flag.String("due", "", "Due date (optional, format: 2006-01-02 15:04 or RFC3339, default: now)")
	taskType := flag.String("tasktype", "onetime", "Task type: onetime or recurring")
	recurring := flag.String("recurring", "", "RRULE for recurring tasks, e.g. FREQ=MINUTELY;INTERVAL=5")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts")
	flag.Parse()

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry)

	if *taskName == "" {
		fmt.Println("Usage: schedule_task -task_name <name> [-arguments <json>] [-due <YYYY-MM-DD HH:MM>] [options]")
		fmt.Printf("Known tasks: %v\n", registry.Names())
		flag.PrintDefaults()
		os.Exit(1)
	}
	if _, ok := registry.Get(*taskName); !ok {
		log.Fatalf("Unknown task %q, known tasks: %v", *taskName, registry.Names())
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		log.Fatalf("Invalid JSON arguments: %v", err)
	}

	due := time.Now()
	if *dueStr != "" {
		var err error
		if due, err = time.Parse(time.RFC3339, *dueStr); err != nil {
			due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
			if err != nil {
				log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
			}
		}
	}

	kind := models.ScheduledTaskType(*taskType)
	var recurringPtr *string
	switch kind {
	case models.ScheduledTaskTypeOneTime:
	case models.ScheduledTaskTypeRecurring:
		if *recurring == "" {
			log.Fatal("-recurring is required for recurring tasks")
		}
		recurringPtr = recurring
	default:
		log.Fatalf("Invalid task type %q", *taskType)
	}

	task, err := tasks.BuildScheduledTask(*taskName, args, due, recurringPtr, kind, *maxAttempt)
	if err != nil {
		log.Fatalf("Failed to build task: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	db, err := services.InitDB(cfg.DatabaseURL, zl)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	if err := tasks.NewGormTaskStore(db).Create(context.Background(), task); err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
