package ircd

import "github.com/pkg/errors"

// ErrUserCapReached is returned by UserDirectory.Reserve when the
// server-wide user cap (nb_users_limit) has been hit.
var ErrUserCapReached = errors.New("user directory is at capacity")

// ErrChannelCapReached is returned by ChannelDirectory.GetOrCreate when
// the server-wide channel cap (nb_channels_limit) has been hit.
var ErrChannelCapReached = errors.New("channel directory is at capacity")

// errNicknameInUseErr is returned by UserDirectory.Reserve/Rename when
// the requested nickname is already taken by another connection.
var errNicknameInUseErr = errors.New("nickname is already in use")
