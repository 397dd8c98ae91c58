package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// Version returns the software version string.
func Version(payload gjson.Result) (model.VersionInfo, error) {
	if payload.Type != gjson.String || payload.Str == "" {
		return "", util.NewMissingDataError(string(model.CategoryVersion), "no version string")
	}
	return model.VersionInfo(payload.Str), nil
}

// Applications maps application name to its state.
func Applications(payload gjson.Result) (*model.StateTable, error) {
	return stateTable(model.CategoryApplications, payload, "name", "state")
}

// NetworkInstances maps network-instance name to its oper-state.
func NetworkInstances(payload gjson.Result) (*model.StateTable, error) {
	return stateTable(model.CategoryNetworkInstances, payload, "name", "oper-state")
}

// Fans maps fan-tray id to its oper-state.
func Fans(payload gjson.Result) (*model.StateTable, error) {
	return stateTable(model.CategoryFans, payload, "id", "oper-state")
}

// PowerSupplies maps power-supply id to its oper-state.
func PowerSupplies(payload gjson.Result) (*model.StateTable, error) {
	return stateTable(model.CategoryPower, payload, "id", "oper-state")
}

// ControlCards maps control slot to its card record.
func ControlCards(payload gjson.Result) (*model.CardTable, error) {
	return cardTable(model.CategoryControl, payload)
}

// Linecards maps linecard slot to its card record.
func Linecards(payload gjson.Result) (*model.CardTable, error) {
	return cardTable(model.CategoryLinecards, payload)
}

func stateTable(category model.Category, payload gjson.Result, key, value string) (*model.StateTable, error) {
	items, err := list(category, payload)
	if err != nil {
		return nil, err
	}
	t := model.NewOrderedMap[string]()
	for _, it := range items {
		t.Set(child(it, key).String(), enum(child(it, value)))
	}
	return t, nil
}

func cardTable(category model.Category, payload gjson.Result) (*model.CardTable, error) {
	items, err := list(category, payload)
	if err != nil {
		return nil, err
	}
	t := model.NewOrderedMap[model.CardState]()
	for _, it := range items {
		t.Set(child(it, "slot").String(), model.CardState{
			CardType:  child(it, "type").String(),
			OperState: enum(child(it, "oper-state")),
		})
	}
	return t, nil
}
