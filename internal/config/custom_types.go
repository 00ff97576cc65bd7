package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FlexBool decodes force_one_trade from the loose forms that show up in
// run configs: a yaml bool, a quoted "true"/"false"/"1"/"0", or a bare
// 0/1. Anything else is rejected.
type FlexBool bool

func (fb *FlexBool) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!bool":
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*fb = FlexBool(b)
		return nil
	case "!!str":
		b, err := strconv.ParseBool(value.Value)
		if err != nil {
			return fmt.Errorf("config: %q is not a boolean", value.Value)
		}
		*fb = FlexBool(b)
		return nil
	case "!!int":
		i, err := strconv.Atoi(value.Value)
		if err != nil {
			return err
		}
		*fb = FlexBool(i != 0)
		return nil
	}
	return fmt.Errorf("config: cannot decode %s node as a boolean", value.Tag)
}
