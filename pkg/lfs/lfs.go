// Package lfs 把指纹计算、batch 协商和 transfer adapter 串成完整的上传/下载流程
package lfs

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"

	"lfsclient/pkg/client"
	"lfsclient/pkg/core"
	"lfsclient/pkg/logr"
	"lfsclient/pkg/transfer"
	"lfsclient/pkg/types"
)

// Options 是 Client 的可选参数
type Options struct {
	// 声明给服务端的 transfer 偏好顺序，为空时使用 client.DefaultTransfers
	Transfers []string
	// 可选的 ref 名称，例如 refs/heads/main
	Ref string
	// 为空时使用 transfer.DefaultRegistry()
	Registry *transfer.Registry
	Logger   logr.Logger
}

// Client 是面向调用方的入口
type Client struct {
	api       *client.Client
	registry  *transfer.Registry
	transfers []string
	ref       string
	logger    logr.Logger
}

// New 组装 Client，并在启动时校验偏好列表里的每个 transfer 都已注册
func New(api *client.Client, opts Options) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("lfs: nil api client")
	}
	if opts.Registry == nil {
		opts.Registry = transfer.DefaultRegistry()
	}
	if len(opts.Transfers) == 0 {
		opts.Transfers = client.DefaultTransfers
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if err := opts.Registry.Validate(opts.Transfers); err != nil {
		return nil, err
	}
	opts.Logger.V(1).Info("lfs client ready", "server", api.Hostname(), "transfers", opts.Transfers, "registered", opts.Registry.Names())
	return &Client{
		api:       api,
		registry:  opts.Registry,
		transfers: slices.Clone(opts.Transfers),
		ref:       opts.Ref,
		logger:    opts.Logger,
	}, nil
}

// Prefix 返回 batch 接口的路径前缀 {org}/{repo}
func Prefix(org, repo string) string {
	return path.Join(org, repo)
}

// Upload 计算 r 的指纹并上传
// r 必须可以 seek：指纹计算和实际传输会各读一遍
func (c *Client) Upload(ctx context.Context, r io.ReadSeeker, org, repo string) (types.Object, error) {
	obj, err := core.Fingerprint(r)
	if err != nil {
		return types.Object{}, err
	}
	if err := c.UploadObject(ctx, r, org, repo, obj); err != nil {
		return types.Object{}, err
	}
	return obj, nil
}

// UploadObject 上传一个已经算好指纹的对象
func (c *Client) UploadObject(ctx context.Context, r io.ReadSeeker, org, repo string, obj types.Object) error {
	logger := c.logger.WithValues("oid", obj.Oid, "size", obj.Size)

	bo, adapter, err := c.negotiate(ctx, types.OperationUpload, org, repo, obj)
	if err != nil {
		return err
	}
	if !bo.HasActions() {
		logger.Info("object already exists on server")
		return nil
	}

	if err := adapter.Upload(ctx, r, bo); err != nil {
		return err
	}
	logger.Info("uploaded object", "transfer", adapter.Name())
	return nil
}

// Download 把对象写入 w
// 内容不在客户端按 oid 校验，由调用方决定是否需要
func (c *Client) Download(ctx context.Context, w io.Writer, org, repo string, obj types.Object) error {
	if !obj.Oid.IsValid() {
		return fmt.Errorf("invalid oid %q", obj.Oid)
	}
	bo, adapter, err := c.negotiate(ctx, types.OperationDownload, org, repo, obj)
	if err != nil {
		return err
	}
	if err := adapter.Download(ctx, w, bo); err != nil {
		return err
	}
	c.logger.V(1).Info("downloaded object", "oid", obj.Oid, "transfer", adapter.Name())
	return nil
}

// Negotiate 只执行 batch 请求，不传输任何字节
func (c *Client) Negotiate(ctx context.Context, op types.Operation, org, repo string, obj types.Object) (*types.BatchResponse, error) {
	return c.api.Batch(ctx, Prefix(org, repo), op, []types.Object{obj}, c.ref, c.transfers)
}

// negotiate 执行 batch 请求，取出对应对象并选出 adapter
func (c *Client) negotiate(ctx context.Context, op types.Operation, org, repo string, obj types.Object) (types.BatchObject, transfer.Adapter, error) {
	resp, err := c.Negotiate(ctx, op, org, repo, obj)
	if err != nil {
		return types.BatchObject{}, nil, err
	}

	bo, err := pick(resp, obj)
	if err != nil {
		return types.BatchObject{}, nil, err
	}
	if err := client.CheckObject(bo); err != nil {
		return types.BatchObject{}, nil, err
	}

	// 服务端不返回 transfer 时按协议默认为 basic
	name := resp.Transfer
	if name == "" {
		name = types.TransferBasic
	}
	factory, err := c.registry.Lookup(name)
	if err != nil {
		return types.BatchObject{}, nil, err
	}
	return bo, factory(c.api.HTTP(), c.logger), nil
}

// pick 在 batch 响应里找到请求的对象
// adapter 只认本地计算的 size，服务端回显的 size 不一致时直接拒绝
func pick(resp *types.BatchResponse, obj types.Object) (types.BatchObject, error) {
	for _, bo := range resp.Objects {
		if bo.Oid != obj.Oid {
			continue
		}
		if bo.Error == nil && bo.Size != obj.Size {
			return types.BatchObject{}, &client.SizeMismatchError{Oid: obj.Oid, Want: obj.Size, Got: bo.Size}
		}
		return bo, nil
	}
	return types.BatchObject{}, fmt.Errorf("object %s missing from batch response", obj.Oid.Short())
}
