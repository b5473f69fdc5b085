package mqtt

import (
	"fmt"
	"strings"
)

// Topics builds the bridge's topic names under one prefix.
//
//	<prefix>/<featureset>/<feature>    raw value, retained
//	<prefix>/<featureset>/climate      derived climate state, retained
//	<prefix>/<featureset>/event        button events
//	<prefix>/<featureset>/set/<cmd>    commands in
//	<prefix>/status                    bridge online/offline, retained
type Topics struct {
	Prefix string
}

func (t Topics) Feature(featuresetID, key string) string {
	return t.Prefix + "/" + featuresetID + "/" + key
}

func (t Topics) Climate(featuresetID string) string {
	return t.Prefix + "/" + featuresetID + "/climate"
}

func (t Topics) Event(featuresetID string) string {
	return t.Prefix + "/" + featuresetID + "/event"
}

func (t Topics) Set(featuresetID, command string) string {
	return t.Prefix + "/" + featuresetID + "/set/" + command
}

// AllSets matches every command topic.
func (t Topics) AllSets() string {
	return t.Prefix + "/+/set/+"
}

func (t Topics) Status() string {
	return t.Prefix + "/status"
}

// ParseSet splits a command topic into feature set id and command name.
func (t Topics) ParseSet(topic string) (string, string, error) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" || parts[0] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	return parts[0], parts[2], nil
}
