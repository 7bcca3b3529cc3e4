package redis

import (
	"net"
	"strconv"
)

type RedisConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Database   int
	TLSEnabled bool
}

func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
