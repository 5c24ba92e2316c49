package reviews

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// LineItem is one detected product and its shelf count.
type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ProductData is the stored shape of parsed/reviewed/admin-reviewed data.
type ProductData struct {
	Products []LineItem `json:"products"`
}

func EncodeProducts(items []LineItem) (datatypes.JSON, error) {
	if items == nil {
		items = []LineItem{}
	}
	raw, err := json.Marshal(ProductData{Products: items})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeProducts returns nil, false for an absent or null column.
func DecodeProducts(raw datatypes.JSON) ([]LineItem, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false, nil
	}
	var pd ProductData
	if err := json.Unmarshal(raw, &pd); err != nil {
		return nil, false, err
	}
	if pd.Products == nil {
		pd.Products = []LineItem{}
	}
	return pd.Products, true, nil
}
