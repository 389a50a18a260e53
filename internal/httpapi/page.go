package httpapi

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Landing</title>
</head>
<body>
  <h1>Welcome!</h1>
{{- if .Message}}
  <div id="toast-interactive" class="toast">{{.Message}}</div>
{{- end}}

  <section id="products-container">
{{- if .ProductsErr}}
    <p class="error">{{.ProductsErr}}</p>
{{- end}}
{{- range .Products}}
    <div class="product">
      <img src="{{.ImgURL}}" alt="{{.ShortTitle}}">
      <h3>${{.Price}}</h3>
      <div>{{.ShortTitle}}</div>
      <a href="{{.ProductURL}}" target="_blank" rel="noopener noreferrer">View on Amazon</a>
      <div hidden><span>{{.CategoryID}}</span></div>
    </div>
{{- end}}
  </section>

  <select id="categories">
    <option selected disabled>Select a category</option>
{{- range .Categories}}
    <option value="{{.ID}}">{{.Name}}</option>
{{- end}}
  </select>
{{- if .CategoriesErr}}
  <p class="error">{{.CategoriesErr}}</p>
{{- end}}

  <form id="form_voting" method="post" action="/vote">
    <select id="select_product" name="select_product">
      <option value="" selected>Select a product</option>
{{- range .Products}}
      <option value="{{.SubjectID}}">{{.ShortTitle}}</option>
{{- end}}
    </select>
    <button type="submit">Vote</button>
  </form>

  <section id="results">
{{- if .TallyErr}}
    <p class="error">{{.TallyErr}}</p>
{{- end}}
    {{.Tally}}
  </section>
</body>
</html>
`))
