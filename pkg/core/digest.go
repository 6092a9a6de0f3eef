package core

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
)

// DigestContentMD5 是目前唯一支持的 want_digest 取值
const DigestContentMD5 = "contentMD5"

// UnsupportedDigestError 表示服务端要求了客户端不认识的摘要类型
type UnsupportedDigestError struct {
	Kind string
}

func (e *UnsupportedDigestError) Error() string {
	return fmt.Sprintf("unsupported want_digest value: %q", e.Kind)
}

// DigestHeader 为分片数据计算传输校验头
// 不认识的类型直接报错，不能悄悄省略这个头
func DigestHeader(data []byte, kind string) (map[string]string, error) {
	switch kind {
	case DigestContentMD5:
		sum := md5.Sum(data)
		return map[string]string{
			"Content-MD5": base64.StdEncoding.EncodeToString(sum[:]),
		}, nil
	default:
		return nil, &UnsupportedDigestError{Kind: kind}
	}
}
