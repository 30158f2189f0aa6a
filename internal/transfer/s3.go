package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/azhengyongqin/transfer-hub/internal/config"
)

// S3Capability 基于 aws-sdk-go-v2 的对象存储传输能力。
// 兼容 S3 协议的自建服务（MinIO 等）通过自定义 endpoint + path style 接入。
type S3Capability struct {
	client *s3.Client
	bucket string
}

// NewS3Capability 创建 S3 传输能力
func NewS3Capability(ctx context.Context, cfg config.S3Config) (*S3Capability, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3Capability{client: client, bucket: cfg.Bucket}, nil
}

// ListItems 解析作业元数据。显式 keys 逐个 HeadObject 取大小；
// 前缀模式走 ListObjectsV2 分页列举。
func (c *S3Capability) ListItems(ctx context.Context, spec JobSpec) ([]Item, error) {
	if err := spec.Validate(); err != nil {
		return nil, &FatalError{Err: err}
	}

	if len(spec.Keys) > 0 {
		items := make([]Item, 0, len(spec.Keys))
		for _, key := range spec.Keys {
			head, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(c.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, classify(err)
			}
			size := int64(-1)
			if head.ContentLength != nil {
				size = *head.ContentLength
			}
			items = append(items, Item{Key: key, Size: size})
		}
		return items, nil
	}

	var items []Item
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(spec.Prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// 跳过"目录"占位对象
			if key == "" || key[len(key)-1] == '/' {
				continue
			}
			size := int64(-1)
			if obj.Size != nil {
				size = *obj.Size
			}
			items = append(items, Item{Key: key, Size: size})
		}
	}
	return items, nil
}

// FetchItem 下载单个对象到 destPath。
// 先写 .part 临时文件，成功后原子重命名：失败的单元不留半成品，
// 字节计数由调用方在成功后才累加。
func (c *S3Capability) FetchItem(ctx context.Context, item Item, destPath string) (int64, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(item.Key),
	})
	if err != nil {
		return 0, classify(err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, &FatalError{Err: fmt.Errorf("create dest dir: %w", err)}
	}

	tmp := destPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, &FatalError{Err: fmt.Errorf("create dest file: %w", err)}
	}

	n, err := io.Copy(f, out.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, classify(err)
	}

	if err := os.Rename(tmp, destPath); err != nil {
		_ = os.Remove(tmp)
		return 0, &FatalError{Err: fmt.Errorf("finalize dest file: %w", err)}
	}

	return n, nil
}

// TestConnection 通过 HeadBucket 探测连通性，把常见状态码翻译成
// 可直接展示给用户的结论。
func (c *S3Capability) TestConnection(ctx context.Context) ConnectionResult {
	ctx, cancelFn := context.WithTimeout(ctx, 10*time.Second)
	defer cancelFn()

	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return ConnectionResult{Success: true, Message: "连接成功，bucket 可访问"}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case 401:
			return ConnectionResult{Success: false, Message: "认证失败（401），请检查 access key 与 secret key"}
		case 403:
			return ConnectionResult{Success: false, Message: "拒绝访问（403），凭证有效但没有该 bucket 的权限"}
		case 404:
			return ConnectionResult{Success: false, Message: "bucket 不存在（404），请检查 bucket 名称与 endpoint"}
		case 412:
			return ConnectionResult{Success: false, Message: "前置条件失败（412），服务端可能不支持所需的签名方式"}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ConnectionResult{Success: false, Message: "连接超时，服务不可达或响应过慢"}
	}

	return ConnectionResult{Success: false, Message: fmt.Sprintf("连接失败: %v", err)}
}

// classify 把 SDK 错误归入 transient/fatal 两类。
// 对象/桶不存在与权限类错误不可恢复；网络与服务端 5xx 可重试。
func classify(err error) error {
	var noKey *s3types.NoSuchKey
	var noBucket *s3types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return &FatalError{Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "NoSuchKey", "NoSuchBucket":
			return &FatalError{Err: err}
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		return &TransientError{Err: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Err: err}
	}

	// 其余按可重试处理：对象存储侧的瞬时故障远多于未知的致命错误
	return &TransientError{Err: err}
}
