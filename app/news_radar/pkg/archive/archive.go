package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconf "github.com/iWorld-y/news_radar/app/news_radar/pkg/config"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// Archiver 归档一次抓取中新入库的文章
type Archiver interface {
	Archive(ctx context.Context, provider string, at time.Time, articles []*model.Article) (string, error)
}

// Record 归档文件中的单篇文章
type Record struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"external_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Content     string     `json:"content,omitempty"`
	URL         string     `json:"url"`
	ImageURL    string     `json:"image_url,omitempty"`
	SourceName  string     `json:"source_name,omitempty"`
	Language    string     `json:"language"`
	Country     string     `json:"country,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// Batch 归档文件
type Batch struct {
	Provider   string    `json:"provider"`
	ArchivedAt time.Time `json:"archived_at"`
	Articles   []Record  `json:"articles"`
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver 将文章以 JSON 写入 S3 (或兼容存储)
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Archiver 使用默认 AWS 凭证链创建归档器
func NewS3Archiver(ctx context.Context, cfg appconf.ArchiveConfig) (*S3Archiver, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Key 归档对象路径: {prefix}/YYYY/MM/DD/{时间戳}-{provider}.json
func (a *S3Archiver) Key(provider string, at time.Time) string {
	at = at.UTC()
	return path.Join(a.prefix, at.Format("2006/01/02"), fmt.Sprintf("%s-%s.json", at.Format("150405.000000"), provider))
}

// Archive implements Archiver
func (a *S3Archiver) Archive(ctx context.Context, provider string, at time.Time, articles []*model.Article) (string, error) {
	batch := Batch{Provider: provider, ArchivedAt: at.UTC(), Articles: make([]Record, 0, len(articles))}
	for _, art := range articles {
		batch.Articles = append(batch.Articles, Record{
			ID:          art.ID,
			ExternalID:  art.ExternalID,
			Title:       art.Title,
			Description: art.Description,
			Content:     art.Content,
			URL:         art.URL,
			ImageURL:    art.ImageURL,
			SourceName:  art.SourceName,
			Language:    art.Language,
			Country:     art.Country,
			PublishedAt: art.PublishedAt,
			FetchedAt:   art.FetchedAt,
		})
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return "", err
	}

	key := a.Key(provider, at)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}
