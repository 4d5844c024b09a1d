package manager

import (
	"encoding/json"
	"fmt"

	"github.com/meegol/SIC-Gambling/internal/game/blackjack"
	"github.com/meegol/SIC-Gambling/internal/game/holdem"
	"github.com/meegol/SIC-Gambling/internal/game/inbetween"
	"github.com/meegol/SIC-Gambling/internal/game/roulette"
)

// 上行事件名
const (
	EventJoinRoom      = "join-room"
	EventPlaceBet      = "place-bet"
	EventRemoveBet     = "remove-bet"
	EventSpin          = "spin"
	EventJoinBlackjack = "join-blackjack"
	EventBlackjackBet  = "place-blackjack-bet"
	EventBlackjackMove = "blackjack-action"
	EventJoinPoker     = "join-poker"
	EventPokerAction   = "poker-action"
	EventJoinInBetween = "join-inbetween"
	EventInBetweenMove = "inbetween-action"
	EventLeaveRoom     = "leave-room"
)

// envelope holds the fields every inbound payload may carry.
type envelope struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Game       string `json:"game"`
}

type route struct {
	game   GameType
	join   bool
	decode func(json.RawMessage) (any, error)
}

func decodeAs[T any](data json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// place-bet 的下注内容包在 bet 字段里
func decodeRouletteBet(data json.RawMessage) (any, error) {
	var in struct {
		Bet roulette.PlaceBet `json:"bet"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return in.Bet, nil
}

func decodeSpin(json.RawMessage) (any, error) {
	return roulette.Spin{}, nil
}

var routes = map[string]route{
	EventJoinRoom:  {game: Roulette, join: true},
	EventPlaceBet:  {game: Roulette, decode: decodeRouletteBet},
	EventRemoveBet: {game: Roulette, decode: decodeAs[roulette.RemoveBet]},
	EventSpin:      {game: Roulette, decode: decodeSpin},

	EventJoinBlackjack: {game: Blackjack, join: true},
	EventBlackjackBet:  {game: Blackjack, decode: decodeAs[blackjack.PlaceBet]},
	EventBlackjackMove: {game: Blackjack, decode: decodeAs[blackjack.Action]},

	EventJoinPoker:   {game: Holdem, join: true},
	EventPokerAction: {game: Holdem, decode: decodeAs[holdem.Action]},

	EventJoinInBetween: {game: InBetween, join: true},
	EventInBetweenMove: {game: InBetween, decode: decodeAs[inbetween.Action]},
}

// decode 解析一条上行消息。返回的 route 为 nil 表示未知事件。
func decode(event string, data json.RawMessage) (*route, envelope, any, error) {
	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, env, nil, fmt.Errorf("decode %s: %w", event, err)
		}
	}
	if event == EventLeaveRoom {
		return &route{game: GameType(env.Game)}, env, nil, nil
	}
	r, ok := routes[event]
	if !ok {
		return nil, env, nil, nil
	}
	if r.join {
		return &r, env, nil, nil
	}
	intent, err := r.decode(data)
	if err != nil {
		return nil, env, nil, fmt.Errorf("decode %s: %w", event, err)
	}
	return &r, env, intent, nil
}
