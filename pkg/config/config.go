package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port                string `envconfig:"PORT" default:"8080"`
	AWSRegion           string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	RecordTableName     string `envconfig:"RECORD_TABLE_NAME" default:"concierge-records"`
	DynamoDBEndpoint    string `envconfig:"DYNAMODB_ENDPOINT" default:""` // DynamoDB Local endpoint
	KafkaBrokers        string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	SlackWebhookURL     string `envconfig:"SLACK_WEBHOOK_URL" default:""`
	SlackDefaultChannel string `envconfig:"SLACK_DEFAULT_CHANNEL" default:"#customer-service"`
	LogLevel            string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
