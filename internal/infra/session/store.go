package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
)

// ErrNotFound 登录态文件不存在
var ErrNotFound = errors.New("session state not found")

const backupLayout = "20060102_150405"

// Store 登录态文件的读写
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Restore 读取登录态, 文件不存在时返回 ErrNotFound
func (s *Store) Restore() (*StorageState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session state %s: %w", s.path, err)
	}
	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session state %s: %w", s.path, err)
	}
	return &state, nil
}

// Persist 先写临时文件再 rename, 避免中途退出留下半个文件
func (s *Store) Persist(state *StorageState) error {
	if state == nil {
		state = &StorageState{}
	}
	if state.Cookies == nil {
		state.Cookies = []Cookie{}
	}
	if state.Origins == nil {
		state.Origins = []OriginState{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session state: %w", err)
	}
	return nil
}

// Backup 把现有登录态重命名为 <path>.bak.YYYYMMDD_HHMMSS, 文件不存在时返回空串
func (s *Store) Backup(now time.Time) (string, error) {
	if !s.Exists() {
		return "", nil
	}
	dst := fmt.Sprintf("%s.bak.%s", s.path, now.Format(backupLayout))
	if err := os.Rename(s.path, dst); err != nil {
		return "", fmt.Errorf("backup session state: %w", err)
	}
	return dst, nil
}

// Authenticator 交互式登录, 返回新的登录态
type Authenticator interface {
	Login(ctx context.Context) (*StorageState, error)
}

// EnsureLoginState 登录态已存在且不强制时直接返回, 否则走一次交互登录并保存
func EnsureLoginState(ctx context.Context, store *Store, auth Authenticator, force bool, log logger.Logger) error {
	if store.Exists() && !force {
		log.Info("检测到已有登录态, 跳过登录", logger.String("path", store.Path()))
		return nil
	}
	log.Info("需要登录, 打开浏览器", logger.String("path", store.Path()), logger.Bool("force", force))
	state, err := auth.Login(ctx)
	if err != nil {
		return fmt.Errorf("interactive login: %w", err)
	}
	if err := store.Persist(state); err != nil {
		return err
	}
	log.Info("登录态已保存", logger.String("path", store.Path()), logger.Int("cookies", len(state.Cookies)))
	return nil
}
