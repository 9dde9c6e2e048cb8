package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv 加载 .env（可用 ENV_FILE 指定）；文件不存在时只用进程环境变量
func LoadEnv() {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("load %s: %v", path, err)
		}
	}
}
