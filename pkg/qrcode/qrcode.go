// Package qrcode 将文本负载编码为 PNG 二维码并以 data URI 形式返回。
package qrcode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/sernafernando/lcr-qr/config"
)

// DataURIPrefix PNG data URI 前缀
const DataURIPrefix = "data:image/png;base64,"

// quietZone 四周留白的模块数
const quietZone = 4

// Encoder 基于 boombuler/barcode 的二维码编码器
type Encoder struct {
	level qr.ErrorCorrectionLevel
	scale int
}

// NewEncoder 根据配置创建编码器
func NewEncoder(cfg *config.QRConfig) (*Encoder, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Scale <= 0 {
		return nil, fmt.Errorf("qr scale 必须大于 0，实际 %d", cfg.Scale)
	}
	return &Encoder{level: level, scale: cfg.Scale}, nil
}

// ParseLevel 解析纠错等级 L/M/Q/H（大小写不敏感）
func ParseLevel(s string) (qr.ErrorCorrectionLevel, error) {
	switch strings.ToUpper(s) {
	case "L":
		return qr.L, nil
	case "M":
		return qr.M, nil
	case "Q":
		return qr.Q, nil
	case "H":
		return qr.H, nil
	default:
		return qr.L, fmt.Errorf("无效的纠错等级 %q", s)
	}
}

// Encode 编码负载并返回 data URI；负载超出容量时返回错误
func (e *Encoder) Encode(payload string) (string, error) {
	img, err := e.Render(payload)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("PNG 编码失败: %w", err)
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Render 生成带留白的二维码图像，每个模块边长为 scale 像素
func (e *Encoder) Render(payload string) (image.Image, error) {
	code, err := qr.Encode(payload, e.level, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("二维码编码失败: %w", err)
	}

	modules := code.Bounds().Dx()
	side := modules * e.scale
	scaled, err := barcode.Scale(code, side, side)
	if err != nil {
		return nil, fmt.Errorf("二维码缩放失败: %w", err)
	}

	margin := quietZone * e.scale
	canvas := image.NewGray(image.Rect(0, 0, side+2*margin, side+2*margin))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(margin, margin, margin+side, margin+side), scaled, scaled.Bounds().Min, draw.Src)
	return canvas, nil
}
