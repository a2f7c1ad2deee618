package rpc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
	"github.com/danielpatrickdp/twin-engine/internal/engine"
)

// #region set-input-message

func encodeSetInput(factor string, value float64) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"factor": structpb.NewStringValue(factor),
		"value":  structpb.NewNumberValue(value),
	}}
}

func decodeSetInput(in *structpb.Struct) (string, float64, error) {
	f := in.GetFields()
	name, ok := f["factor"].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", 0, fmt.Errorf("factor must be a string")
	}
	value, ok := f["value"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return "", 0, fmt.Errorf("value must be a number")
	}
	return name.StringValue, value.NumberValue, nil
}

// #endregion set-input-message

// #region result-message

func encodeResult(res engine.Result) *structpb.Struct {
	contribs := make([]*structpb.Value, 0, len(res.Contributions))
	for _, c := range res.Contributions {
		contribs = append(contribs, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"factor": structpb.NewStringValue(c.Factor),
			"value":  structpb.NewNumberValue(c.Value),
			"points": structpb.NewNumberValue(float64(c.Points)),
		}}))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"run_id":        structpb.NewStringValue(res.RunID),
		"impact":        structpb.NewNumberValue(float64(res.Impact)),
		"label":         structpb.NewStringValue(res.Label),
		"status":        structpb.NewStringValue(string(res.Status)),
		"contributions": structpb.NewListValue(&structpb.ListValue{Values: contribs}),
		"inputs":        structpb.NewStructValue(encodeInputs(res.Inputs)),
		"started_at":    structpb.NewStringValue(res.StartedAt.Format(time.RFC3339Nano)),
		"completed_at":  structpb.NewStringValue(res.CompletedAt.Format(time.RFC3339Nano)),
	}}
}

func decodeResult(in *structpb.Struct) (engine.Result, error) {
	f := in.GetFields()
	status, err := classify.ParseStatus(f["status"].GetStringValue())
	if err != nil {
		return engine.Result{}, err
	}
	res := engine.Result{
		RunID:  f["run_id"].GetStringValue(),
		Impact: int(f["impact"].GetNumberValue()),
		Label:  f["label"].GetStringValue(),
		Status: status,
		Inputs: decodeInputs(f["inputs"].GetStructValue()),
	}
	for _, v := range f["contributions"].GetListValue().GetValues() {
		cf := v.GetStructValue().GetFields()
		res.Contributions = append(res.Contributions, engine.Contribution{
			Factor: cf["factor"].GetStringValue(),
			Value:  cf["value"].GetNumberValue(),
			Points: int(cf["points"].GetNumberValue()),
		})
	}
	if res.StartedAt, err = time.Parse(time.RFC3339Nano, f["started_at"].GetStringValue()); err != nil {
		return engine.Result{}, fmt.Errorf("started_at: %w", err)
	}
	if res.CompletedAt, err = time.Parse(time.RFC3339Nano, f["completed_at"].GetStringValue()); err != nil {
		return engine.Result{}, fmt.Errorf("completed_at: %w", err)
	}
	return res, nil
}

// #endregion result-message

// #region state-message

func encodeSnapshot(snap engine.Snapshot) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"state":  structpb.NewStringValue(string(snap.State)),
		"inputs": structpb.NewStructValue(encodeInputs(snap.Inputs)),
	}
	if snap.Result != nil {
		fields["result"] = structpb.NewStructValue(encodeResult(*snap.Result))
	}
	return &structpb.Struct{Fields: fields}
}

func decodeSnapshot(in *structpb.Struct) (engine.Snapshot, error) {
	f := in.GetFields()
	snap := engine.Snapshot{
		State:  engine.RunState(f["state"].GetStringValue()),
		Inputs: decodeInputs(f["inputs"].GetStructValue()),
	}
	if rv, ok := f["result"]; ok {
		res, err := decodeResult(rv.GetStructValue())
		if err != nil {
			return engine.Snapshot{}, fmt.Errorf("decode result: %w", err)
		}
		snap.Result = &res
	}
	return snap, nil
}

// #endregion state-message

// #region helpers

func encodeInputs(in map[string]float64) *structpb.Struct {
	fields := make(map[string]*structpb.Value, len(in))
	for k, v := range in {
		fields[k] = structpb.NewNumberValue(v)
	}
	return &structpb.Struct{Fields: fields}
}

func decodeInputs(in *structpb.Struct) map[string]float64 {
	out := make(map[string]float64, len(in.GetFields()))
	for k, v := range in.GetFields() {
		out[k] = v.GetNumberValue()
	}
	return out
}

// #endregion helpers
