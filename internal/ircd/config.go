package ircd

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config holds a server's configuration. It is the core's only contact
// with the external bootstrap/config-file layer: the core never opens a
// file itself, it only consumes an already-populated Config.
type Config struct {
	// ServerName is svdomain: the origin prefix and the only legal
	// PING/server-target value.
	ServerName  string
	Version     string
	CreatedDate string

	PasswordProtected bool
	ServerPasswords   map[string]struct{}

	// Opers maps OPER login to password.
	Opers map[string]string

	SendMOTD     bool
	MOTDLines    []string
	MOTDFileSeen bool

	SendStats bool

	PingRefreshDelay time.Duration
	PingTimeoutDelay time.Duration

	MaxUsers        int
	MaxChannels     int
	MaxJoinsPerUser int

	UsersLimitPerChannel int

	DefaultIsIRCOp         bool
	DefaultReceivesWallops bool
	DefaultReceivesNotices bool
	DefaultInvisible       bool
	DefaultAway            bool

	DefaultChanPrivate      bool
	DefaultChanSecret       bool
	DefaultChanInviteOnly   bool
	DefaultChanTopicOpsOnly bool
	DefaultChanNoOutsideMsg bool
	DefaultChanModerated    bool

	AdminLocation1 string
	AdminLocation2 string
	AdminMail      string
	ServerInfos    []string
}

// DefaultConfig returns a Config with every option at a safe,
// unprotected default, needing only ServerName to be useful.
func DefaultConfig(serverName string) Config {
	return Config{
		ServerName:           serverName,
		Version:              "1.0",
		CreatedDate:          time.Now().Format("2006-01-02"),
		ServerPasswords:      map[string]struct{}{},
		Opers:                map[string]string{},
		SendMOTD:             false,
		SendStats:            true,
		PingRefreshDelay:     90 * time.Second,
		PingTimeoutDelay:     60 * time.Second,
		MaxUsers:             4096,
		MaxChannels:          2048,
		MaxJoinsPerUser:      20,
		UsersLimitPerChannel: 0,

		// New connections receive notices and wallops unless the config
		// file opts them out; a default of false would silently eat every
		// NOTICE on an unconfigured server.
		DefaultReceivesNotices: true,
		DefaultReceivesWallops: true,
	}
}

// requiredConfigKeys are the key=value entries ApplyConfigMap insists a
// config file carry; everything else is optional and keeps its default.
var requiredConfigKeys = []string{
	"svdomain",
}

// ApplyConfigMap overrides fields of base with values read from a
// key=value config file (via github.com/horgh/config.ReadStringMap).
// Unset keys keep base's value so a config file only needs to mention
// what it wants to change.
func ApplyConfigMap(base Config, raw map[string]string) (Config, error) {
	cfg := base

	for _, key := range requiredConfigKeys {
		if _, ok := raw[key]; !ok {
			return Config{}, errors.Errorf("missing required config key: %s", key)
		}
	}

	if v, ok := raw["svdomain"]; ok {
		cfg.ServerName = v
	}
	if v, ok := raw["version"]; ok {
		cfg.Version = v
	}
	if v, ok := raw["created_date"]; ok {
		cfg.CreatedDate = v
	}

	if v, ok := raw["is_password_protected"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing is_password_protected")
		}
		cfg.PasswordProtected = b
	}
	if v, ok := raw["server_password"]; ok {
		cfg.ServerPasswords = stringSetFromCSV(v)
	}

	if v, ok := raw["server_ircop"]; ok {
		opers, err := pairsFromCSV(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing server_ircop")
		}
		cfg.Opers = opers
	}

	if v, ok := raw["send_motd"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing send_motd")
		}
		cfg.SendMOTD = b
	}
	if v, ok := raw["send_stats"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing send_stats")
		}
		cfg.SendStats = b
	}

	if v, ok := raw["ping_refresh_delay"]; ok {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing ping_refresh_delay")
		}
		cfg.PingRefreshDelay = d
	}
	if v, ok := raw["ping_timeout_delay"]; ok {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing ping_timeout_delay")
		}
		cfg.PingTimeoutDelay = d
	}

	if v, ok := raw["nb_users_limit"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing nb_users_limit")
		}
		cfg.MaxUsers = n
	}
	if v, ok := raw["nb_channels_limit"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing nb_channels_limit")
		}
		cfg.MaxChannels = n
	}
	if v, ok := raw["nb_join_limit"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing nb_join_limit")
		}
		cfg.MaxJoinsPerUser = n
	}
	if v, ok := raw["users_limit_per_channel"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing users_limit_per_channel")
		}
		cfg.UsersLimitPerChannel = n
	}

	if v, ok := raw["is_ircop"]; ok {
		cfg.DefaultIsIRCOp, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["is_receiving_wallops"]; ok {
		cfg.DefaultReceivesWallops, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["is_receiving_notices"]; ok {
		cfg.DefaultReceivesNotices, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["is_invisible"]; ok {
		cfg.DefaultInvisible, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["is_away"]; ok {
		cfg.DefaultAway, _ = strconv.ParseBool(v)
	}

	if v, ok := raw["is_private"]; ok {
		cfg.DefaultChanPrivate, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["is_secret"]; ok {
		cfg.DefaultChanSecret, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["is_invite_only"]; ok {
		cfg.DefaultChanInviteOnly, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["topic_setby_op_only"]; ok {
		cfg.DefaultChanTopicOpsOnly, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["no_outside_msg"]; ok {
		cfg.DefaultChanNoOutsideMsg, _ = strconv.ParseBool(v)
	}
	if v, ok := raw["is_moderated"]; ok {
		cfg.DefaultChanModerated, _ = strconv.ParseBool(v)
	}

	if v, ok := raw["admin_location_1"]; ok {
		cfg.AdminLocation1 = v
	}
	if v, ok := raw["admin_location_2"]; ok {
		cfg.AdminLocation2 = v
	}
	if v, ok := raw["admin_mail"]; ok {
		cfg.AdminMail = v
	}
	if v, ok := raw["server_infos"]; ok {
		cfg.ServerInfos = strings.Split(v, "|")
	}

	return cfg, nil
}

func parseSeconds(v string) (time.Duration, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func stringSetFromCSV(v string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		set[part] = struct{}{}
	}
	return set
}

// pairsFromCSV parses "login:pass,login2:pass2" into a map, used for
// server_ircop.
func pairsFromCSV(v string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, errors.Errorf("malformed oper entry: %q", part)
		}
		out[kv[0]] = kv[1]
	}
	return out, nil
}

// PasswordAccepted reports whether pass matches any configured server
// password. Any match accepts.
func (c Config) PasswordAccepted(pass string) bool {
	_, ok := c.ServerPasswords[pass]
	return ok
}
