package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"draftServer/backend/internal/cache"
	"draftServer/backend/internal/diff"
	"draftServer/backend/internal/draft"
	"draftServer/backend/internal/httpapi/handlers"
	"draftServer/backend/internal/httpapi/middleware"
	"draftServer/backend/internal/markup"
	"draftServer/backend/internal/relay"
	"draftServer/backend/internal/revision"
	"draftServer/backend/internal/store"
	"draftServer/backend/internal/ws"
)

type DraftConfig struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Redis struct {
		Addrs    []string `mapstructure:"addrs"`
		Password string   `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Auth struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"auth"`
	Markup struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"markup"`
	Draft struct {
		MaxRevisions     int `mapstructure:"max_revisions"`
		KeepaliveSeconds int `mapstructure:"keepalive_seconds"`
	} `mapstructure:"draft"`
}

func initConfig() (*DraftConfig, error) {
	cfg := &DraftConfig{}
	v := viper.New()
	v.SetConfigName("draftConfig")
	v.SetConfigType("yaml")
	// 兼容从项目根目录或 backend 目录启动
	v.AddConfigPath("./backend/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetDefault("draft.max_revisions", revision.DefaultMaxRevisions)
	v.SetDefault("draft.keepalive_seconds", 30)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := initConfig()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}
	log.Printf("config: %+v", cfg)

	rdb := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err = rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	db, err := sql.Open("mysql", cfg.Mysql.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	gdb, err := gorm.Open(gormmysql.Open(cfg.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to open gorm connection: %v", err)
	}

	// === Kafka Producer（分布式中继）===
	kafkaCfg := sarama.NewConfig()
	// SyncProducer 必须开启 Return.Successes
	kafkaCfg.Producer.Return.Successes = true
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("Failed to connect kafka: %v", err)
	}
	defer producer.Close()

	dispatcher := relay.NewDispatcher(
		producer,
		cfg.Kafka.Topic,
		relay.NewSemaphore(100),
		relay.DispatcherOptions{
			QueueSize:   10_000,
			Workers:     4,
			MaxRetry:    3,
			BaseBackoff: 50 * time.Millisecond,
			MaxBackoff:  1 * time.Second,
		},
	)

	presenceCache := cache.NewRedisPresence(rdb)
	hub := ws.NewHub(presenceCache, dispatcher)

	revisions := revision.NewStore(cfg.Draft.MaxRevisions)
	draftStore := store.NewDraftStore(db)
	changeStore := store.NewChangeStore(gdb)
	markupClient := markup.NewClient(cfg.Markup.Path)

	svc := draft.NewService(revisions, draftStore, changeStore, diff.NewDiffer(), markupClient, hub)
	manager := ws.NewManager(hub, time.Duration(cfg.Draft.KeepaliveSeconds)*time.Second)
	handler := handlers.NewHandler(svc, presenceCache)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	api := r.Group("/draft")
	// 鉴权中间件：从 Authorization 或 ?token= 提取 token，写入 userId/username
	api.Use(middleware.AuthMiddleware(cfg.Auth.Path))
	api.GET("/ws", manager.WebSocketConnect)
	api.PUT("/drafts/:draftId/content", handler.EditContent)
	api.POST("/drafts/:draftId/undo", handler.Undo)
	api.POST("/drafts/:draftId/redo", handler.Redo)
	api.POST("/drafts/:draftId/changes/:changeId/apply", handler.ApplyChange)
	api.POST("/drafts/:draftId/changes/:changeId/dismiss", handler.DismissChange)
	api.POST("/drafts/:draftId/save", handler.SaveDraft)
	api.DELETE("/drafts/:draftId", handler.DeleteDraft)
	api.GET("/drafts/:draftId/revisions", handler.RevisionLog)
	api.GET("/drafts/:draftId/changes", handler.ListChanges)
	api.GET("/drafts/:draftId/viewers", handler.Viewers)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	port := cfg.Running.Port
	_ = r.Run(fmt.Sprintf(":%d", port))
}
