package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/codeclash/backend/blobstore"
	"github.com/codeclash/backend/challsrvc"
	"github.com/codeclash/backend/conf"
	"github.com/codeclash/backend/evalsrvc"
	"github.com/codeclash/backend/http"
	"github.com/codeclash/backend/roomsrvc"
	"github.com/codeclash/backend/statsink"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	tunablesPath := os.Getenv("TUNABLES_PATH")
	if tunablesPath == "" {
		tunablesPath = "tunables.toml"
	}
	tun, err := conf.ReadTunables(tunablesPath)
	if err != nil {
		panic(fmt.Sprintf("failed to read tunables: %v", err))
	}

	jwtKey := conf.GetEnvOrPanic("JWT_KEY")
	region := conf.GetEnvOrPanic("AWS_REGION")
	challTable := conf.GetEnvOrPanic("CHALLENGE_DDB_TABLE")
	challBucket := conf.GetEnvOrPanic("CHALLENGE_S3_BUCKET")

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), 10)
		}),
	)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}
	ddbClient := dynamodb.NewFromConfig(cfg)

	docs, err := blobstore.NewBlobStore(region, challBucket)
	if err != nil {
		panic(fmt.Sprintf("failed to construct blob store: %v", err))
	}

	timeout := tun.ExternalCallTimeout
	challRepo := challsrvc.NewDdbChallengeRepo(ddbClient, challTable, docs)
	index := challsrvc.NewHttpVectorIndex(
		os.Getenv("VECTOR_INDEX_URL"), os.Getenv("VECTOR_INDEX_API_KEY"), timeout)
	embedder := challsrvc.NewHttpEmbedder(
		os.Getenv("EMBED_URL"), os.Getenv("EMBED_API_KEY"), timeout)
	generator := challsrvc.NewHttpGenerator(
		os.Getenv("GENERATOR_URL"), os.Getenv("GENERATOR_API_KEY"), timeout)
	challSrvc := challsrvc.NewChallengeSrvc(challRepo, index, embedder, generator, tun)

	execClient := evalsrvc.NewHttpExecClient(
		conf.GetEnvOrPanic("EXEC_URL"), os.Getenv("EXEC_AUTH_TOKEN"), timeout)
	evalSrvc := evalsrvc.NewEvalSrvc(execClient, tun)

	var sink *statsink.StatSink
	statsQueueURL := os.Getenv("STATS_SQS_QUEUE_URL")
	var history *statsink.DdbRoundHistory
	if historyTable := os.Getenv("ROUND_HISTORY_DDB_TABLE"); historyTable != "" {
		history = statsink.NewDdbRoundHistory(ddbClient, historyTable)
	}
	sink = statsink.NewStatSink(sqs.NewFromConfig(cfg), statsQueueURL, history)

	registry := roomsrvc.NewRegistry(challSrvc, evalSrvc, sink, []byte(jwtKey), tun)
	go registry.RunSweeper(context.Background())

	allowedOrigins := []string{"http://localhost:3000"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}
	httpServer := http.NewHttpServer(registry, challSrvc, allowedOrigins)

	address := os.Getenv("HTTP_ADDRESS")
	if address == "" {
		address = ":8080"
	}
	log.Printf("Starting server on %s", address)
	err = httpServer.Start(address)
	log.Printf("Server stopped with error: %v", err)
}
