package classify

// DefaultArea is assigned when no category dictionary matches.
const DefaultArea = "Outros"

type areaEntry struct {
	Area     string
	Keywords []string
}

// areaDictionary is tested in order; the first category with a keyword
// hit wins. Keywords are stored already normalized (lower-case, no
// accents) — see Normalize.
var areaDictionary = []areaEntry{
	{"Tecnologia da Informação", []string{
		"software", "sistema de informacao", "desenvolvimento de sistema",
		"tecnologia da informacao", "informatica", "computador", "notebook",
		"servidor de rede", "datacenter", "banco de dados", "licenca de uso",
		"suporte tecnico", "rede de dados", "link de internet", "nuvem",
		"aplicativo", "portal web", "seguranca da informacao", "impressora",
	}},
	{"Engenharia e Obras", []string{
		"obra", "construcao", "reforma", "pavimentacao", "engenharia",
		"edificacao", "terraplenagem", "drenagem", "saneamento",
		"infraestrutura viaria", "ponte", "recapeamento", "alvenaria",
	}},
	{"Saúde", []string{
		"medicamento", "hospitalar", "saude", "equipamento medico",
		"insumo farmaceutico", "odontologic", "laboratorial", "enfermagem",
		"correlatos", "material cirurgico", "ambulancia",
	}},
	{"Educação", []string{
		"escolar", "educacao", "didatico", "merenda", "creche",
		"material pedagogico", "livro", "uniforme escolar", "capacitacao",
		"treinamento", "curso",
	}},
	{"Alimentação", []string{
		"genero alimenticio", "alimentacao", "refeicao", "cesta basica",
		"hortifruti", "coffee break", "fornecimento de alimentos",
	}},
	{"Veículos e Transporte", []string{
		"veiculo", "transporte", "combustivel", "pneu", "frota",
		"locacao de veiculos", "onibus", "caminhao", "manutencao veicular",
		"passagem aerea",
	}},
	{"Limpeza e Conservação", []string{
		"limpeza", "conservacao", "higiene", "material de limpeza",
		"coleta de residuos", "jardinagem", "dedetizacao", "lavanderia",
	}},
	{"Segurança", []string{
		"vigilancia", "seguranca patrimonial", "monitoramento", "cftv",
		"alarme", "portaria", "brigada de incendio", "extintor",
	}},
	{"Mobiliário e Equipamentos", []string{
		"mobiliario", "moveis", "cadeira", "mesa", "armario",
		"eletrodomestico", "ar condicionado", "equipamento de escritorio",
	}},
	{"Comunicação e Marketing", []string{
		"publicidade", "comunicacao visual", "grafica", "impresso",
		"divulgacao", "evento", "cerimonial", "banner", "video institucional",
	}},
	{"Jurídico e Contabilidade", []string{
		"juridico", "advocatici", "contabil", "auditoria", "consultoria tributaria",
		"pericia", "assessoria juridica",
	}},
	{"Recursos Humanos", []string{
		"recursos humanos", "estagiario", "terceirizacao de mao de obra",
		"folha de pagamento", "concurso publico", "selecao de pessoal",
	}},
	{"Agronegócio", []string{
		"agricol", "agropecuari", "semente", "fertilizante", "trator",
		"irrigacao", "insumo agricola",
	}},
	{"Meio Ambiente", []string{
		"ambiental", "reflorestamento", "licenciamento ambiental",
		"residuos solidos", "recuperacao de area degradada", "arborizacao",
	}},
	{"Energia", []string{
		"energia eletrica", "fotovoltaic", "iluminacao publica", "subestacao",
		"eficiencia energetica", "gerador de energia",
	}},
}

type tagEntry struct {
	Tag      string
	Keywords []string
}

// tagDictionary is evaluated independently of the area; every matching
// tag applies, in declaration order.
var tagDictionary = []tagEntry{
	{"Software", []string{"software", "sistema", "aplicativo", "licenca de uso", "desenvolvimento"}},
	{"Cloud", []string{"nuvem", "cloud", "datacenter", "hospedagem"}},
	{"Segurança da Informação", []string{"seguranca da informacao", "firewall", "antivirus", "backup", "lgpd"}},
	{"Hardware", []string{"computador", "notebook", "servidor", "impressora", "equipamento de informatica"}},
	{"Consultoria", []string{"consultoria", "assessoria", "diagnostico"}},
	{"Manutenção", []string{"manutencao", "reparo", "conservacao predial"}},
	{"Locação", []string{"locacao", "aluguel", "arrendamento"}},
	{"Fornecimento Contínuo", []string{"fornecimento parcelado", "registro de precos", "entrega continuada"}},
}
