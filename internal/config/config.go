package config

import (
	"flag"
	"os"
	"time"

	"ansel/internal/domain/models"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string                  `yaml:"env" env:"ENV" env-default:"local"`
	DSN         string                  `yaml:"dsn" env:"DSN" env-required:"true"`
	HTTP        HTTPConfig              `yaml:"http"`
	FileStorage FileStorageConfig       `yaml:"file_storage"`
	Redis       RedisConf               `yaml:"redis"`
	Cache       CacheConfig             `yaml:"cache"`
	SQL         SQLConfig               `yaml:"sql"`
	Prefs       PrefsConfig             `yaml:"prefs"`
	Comments    CommentsConfig          `yaml:"comments"`
	Thumbnail   ThumbnailConfig         `yaml:"thumbnail"`
	URLs        URLConfig               `yaml:"urls"`
	Styles      map[string]models.Style `yaml:"styles"`
}

type HTTPConfig struct {
	Host          string        `yaml:"host"`
	Port          string        `yaml:"port" env-default:"8080"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
	SessionSecret string        `yaml:"session_secret" env:"SESSION_SECRET"`
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type FileStorageConfig struct {
	BaseDir string `yaml:"base_dir" env-default:"./uploads"`
	BaseURL string `yaml:"base_url"`
	MaxSize int64  `yaml:"max_size" env-default:"20971520"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redispassword" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db"`
}

// CacheConfig controls the shared gallery cache. Driver is "redis" or
// "memory".
type CacheConfig struct {
	UseCache        bool          `yaml:"use_cache"`
	Driver          string        `yaml:"driver" env-default:"memory"`
	DefaultLifetime time.Duration `yaml:"default_lifetime" env-default:"24h"`
}

type SQLConfig struct {
	Charset string `yaml:"charset" env-default:"UTF-8"`
}

// PrefsConfig holds the defaults applied to newly created galleries.
type PrefsConfig struct {
	DefaultPermissions  string `yaml:"default_permissions" env-default:"read"`
	GuestPermissions    string `yaml:"guest_permissions" env-default:"read"`
	GroupPermissions    string `yaml:"group_permissions" env-default:"none"`
	DefaultGalleryStyle string `yaml:"default_gallerystyle" env-default:"ansel_default"`
	DefaultCategory     string `yaml:"default_category"`
	DefaultDownload     string `yaml:"default_download" env-default:"original"`
}

// CommentsConfig.Allow is one of "never", "authenticated" or "all".
type CommentsConfig struct {
	Allow string `yaml:"allow" env-default:"authenticated"`
}

type ThumbnailConfig struct {
	Width        int `yaml:"width" env-default:"150"`
	Height       int `yaml:"height" env-default:"150"`
	ScreenWidth  int `yaml:"screen_width" env-default:"800"`
	ScreenHeight int `yaml:"screen_height" env-default:"600"`
	MiniWidth    int `yaml:"mini_width" env-default:"50"`
	MiniHeight   int `yaml:"mini_height" env-default:"50"`
	// Workers bounds concurrent image decoding.
	Workers int `yaml:"workers" env-default:"4"`
}

type URLConfig struct {
	Host    string `yaml:"host"`
	Base    string `yaml:"base"`
	Rewrite bool   `yaml:"rewrite"`
}

func MustLoad() *Config {
	// .env is optional
	_ = godotenv.Load()

	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// Style returns the named style, falling back to the default style.
func (c *Config) Style(name string) models.Style {
	if s, ok := c.Styles[name]; ok {
		if s.Name == "" {
			s.Name = name
		}
		return s
	}

	return models.DefaultStyle
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
